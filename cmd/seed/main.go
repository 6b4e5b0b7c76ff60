// Command seed populates the database with demo users, posts, stories,
// comments and likes.
package main

import (
	"context"
	"flag"
	"log"

	"driftline/internal/config"
	"driftline/internal/docstore"
	"driftline/internal/seed"
)

func main() {
	var opts seed.Options
	flag.IntVar(&opts.NumUsers, "users", 8, "number of accounts to create")
	flag.IntVar(&opts.NumPosts, "posts", 40, "number of posts to create")
	flag.IntVar(&opts.NumStories, "stories", 15, "number of stories to create")
	flag.IntVar(&opts.MaxDays, "max-days", 60, "spread timestamps over this many days")
	flag.StringVar(&opts.Password, "password", "password123", "password for seeded accounts")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := docstore.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	store := docstore.New(db)
	auth := docstore.NewAuth(db, []byte(cfg.JWTSecret))
	client := docstore.NewClient(store, auth)

	if err := seed.New(client, auth, opts).Run(context.Background()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Seeding complete")
}
