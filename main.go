package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/controllers"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/routes"
	"github.com/cppla/yatube/utils"
	"github.com/cppla/yatube/views"
)

const usage = `usage: yatube [command]

commands:
  serve                                  run the web server (default)
  migrate                                create or update the database tables
  create-group -title T -slug S [-description D]
                                         add a group
  clear-cache [-all]                     drop cached index pages, or every cache entry with -all
`

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = serve(cfg)
	case "migrate":
		config.InitDatabase(models.All()...)
		utils.Sugar.Info("migrations applied")
	case "create-group":
		err = createGroup(args)
	case "clear-cache":
		err = clearCache(cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		utils.Sugar.Fatalf("%s: %v", cmd, err)
	}
}

func serve(cfg config.AppConfig) error {
	db := config.InitDatabase(models.All()...)
	store := utils.NewStore(cfg)
	renderer, err := views.Load(cfg.MediaURL)
	if err != nil {
		return err
	}

	r := routes.SetupRouter(db, store, renderer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Start background cleanup for orphaned images (best-effort)
	utils.StartUploadCleaner(ctx, db, cfg.MediaRoot, time.Duration(cfg.UploadCleanupIntervalS)*time.Second)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	return utils.GraceServer(":"+cfg.AppPort, r)
}

func createGroup(args []string) error {
	fs := flag.NewFlagSet("create-group", flag.ContinueOnError)
	title := fs.String("title", "", "group title")
	slug := fs.String("slug", "", "unique URL key")
	description := fs.String("description", "", "group description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*title) == "" || strings.TrimSpace(*slug) == "" {
		return fmt.Errorf("title and slug are required")
	}

	db := config.InitDatabase(models.All()...)
	group := models.Group{Title: *title, Slug: *slug, Description: *description}
	if err := db.Create(&group).Error; err != nil {
		return fmt.Errorf("create group %q: %w", *slug, err)
	}
	utils.Sugar.Infof("group %q created with id %d", group.Slug, group.ID)
	return nil
}

func clearCache(cfg config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("clear-cache", flag.ContinueOnError)
	all := fs.Bool("all", false, "flush the whole store, revoked sessions included")
	if err := fs.Parse(args); err != nil {
		return err
	}
	store := utils.NewStore(cfg)
	if *all {
		store.Flush(context.Background())
	} else {
		controllers.ClearIndexCache(context.Background(), store)
	}
	utils.Sugar.Info("cache cleared")
	return nil
}
