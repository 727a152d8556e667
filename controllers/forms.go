package controllers

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/cppla/yatube/models"
)

const (
	msgRequired        = "Обязательное поле."
	msgInvalidChoice   = "Выберите корректный вариант. Вашего варианта нет среди допустимых значений."
	msgInvalidImage    = "Загрузите правильное изображение. Файл, который вы загрузили, поврежден или не является изображением."
	msgImageTooLarge   = "Размер файла превышает допустимый."
	msgPasswordsDiffer = "Введенные пароли не совпадают."
	msgBadCredentials  = "Пожалуйста, введите правильные имя пользователя и пароль."
	msgUsernameTaken   = "Пользователь с таким именем уже существует."
)

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	// Report fields by their form names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
}

// PostInput is the create/edit post form.
type PostInput struct {
	Heading string `form:"heading" binding:"max=200"`
	Text    string `form:"text" binding:"required"`
	Group   string `form:"group"`
}

// CommentInput is the comment form on the post page.
type CommentInput struct {
	Text string `form:"text" binding:"required"`
}

// SignupInput is the registration form.
type SignupInput struct {
	FirstName string `form:"first_name" binding:"max=150"`
	LastName  string `form:"last_name" binding:"max=150"`
	Username  string `form:"username" binding:"required,min=3,max=150,username"`
	Email     string `form:"email" binding:"omitempty,email,max=254"`
	Password1 string `form:"password1" binding:"required,min=8"`
	Password2 string `form:"password2" binding:"required,eqfield=Password1"`
}

// LoginInput is the login form.
type LoginInput struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

// FormField describes an input rendered by a generic form template.
type FormField struct {
	Name     string
	Label    string
	Type     string
	Required bool
}

var signupFields = []FormField{
	{Name: "first_name", Label: "Имя", Type: "text"},
	{Name: "last_name", Label: "Фамилия", Type: "text"},
	{Name: "username", Label: "Имя пользователя", Type: "text", Required: true},
	{Name: "email", Label: "Адрес электронной почты", Type: "email"},
	{Name: "password1", Label: "Пароль", Type: "password", Required: true},
	{Name: "password2", Label: "Подтверждение пароля", Type: "password", Required: true},
}

// Form carries submitted values and errors back to a template.
type Form struct {
	values   map[string]string
	errors   map[string]string
	nonField []string

	// Groups are the choices of the post form's group select.
	Groups []models.Group
}

func newForm() *Form {
	return &Form{values: map[string]string{}, errors: map[string]string{}}
}

// Value returns the submitted or initial value of a field.
func (f *Form) Value(name string) string { return f.values[name] }

// Error returns the first error of a field.
func (f *Form) Error(name string) string { return f.errors[name] }

func (f *Form) NonFieldErrors() []string { return f.nonField }

// Errors returns every field error keyed by field name.
func (f *Form) Errors() map[string]string { return f.errors }

func (f *Form) Valid() bool { return len(f.errors) == 0 && len(f.nonField) == 0 }

func (f *Form) set(name, value string) { f.values[name] = value }

func (f *Form) addError(name, msg string) {
	if name == "" {
		f.nonField = append(f.nonField, msg)
		return
	}
	if _, ok := f.errors[name]; !ok {
		f.errors[name] = msg
	}
}

// bindForm binds the request into dst and collects validation failures into a Form
// that also holds the raw submitted values for redisplay.
func bindForm(ctx *gin.Context, dst any, fields ...string) *Form {
	form := newForm()
	for _, name := range fields {
		form.set(name, ctx.PostForm(name))
	}
	if err := ctx.ShouldBind(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			form.addError("", "Некорректные данные формы.")
			return form
		}
		for _, fe := range verrs {
			form.addError(fe.Field(), validationMessage(fe))
		}
	}
	return form
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "max":
		return fmt.Sprintf("Убедитесь, что это значение содержит не более %s символов.", fe.Param())
	case "min":
		return fmt.Sprintf("Убедитесь, что это значение содержит не менее %s символов.", fe.Param())
	case "email":
		return "Введите правильный адрес электронной почты."
	case "eqfield":
		return msgPasswordsDiffer
	case "username":
		return "Введите правильное имя пользователя. Оно может содержать только буквы, цифры и знаки @/./+/-/_."
	}
	return "Некорректное значение."
}

// cleanText trims a required text field, flagging it when nothing is left.
// Text is stored as typed; templates escape it.
func cleanText(form *Form, name, raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" && form.Error(name) == "" {
		form.addError(name, msgRequired)
	}
	return text
}

// resolveGroup checks the submitted group choice against existing groups.
func resolveGroup(db *gorm.DB, form *Form, raw string) *uint {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		form.addError("group", msgInvalidChoice)
		return nil
	}
	var group models.Group
	if err := db.Select("id").First(&group, id).Error; err != nil {
		form.addError("group", msgInvalidChoice)
		return nil
	}
	gid := group.ID
	return &gid
}

func loadGroups(db *gorm.DB) ([]models.Group, error) {
	var groups []models.Group
	err := db.Order("title ASC").Find(&groups).Error
	return groups, err
}
