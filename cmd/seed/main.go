// Command seed loads the built-in groups and fills the database with demo users, posts,
// comments and follow edges.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	opts := defaults

	flag.IntVar(&opts.NumUsers, "users", defaults.NumUsers, "Number of users to create")
	flag.IntVar(&opts.PostsPerUser, "posts", defaults.PostsPerUser, "Posts per user")
	flag.IntVar(&opts.CommentsPerPost, "comments", defaults.CommentsPerPost, "Comments per post")
	flag.IntVar(&opts.FollowsPerUser, "follows", defaults.FollowsPerUser, "Authors each user follows")
	flag.IntVar(&opts.MaxDays, "days", defaults.MaxDays, "Spread post dates over this many days")
	flag.BoolVar(&opts.ShouldClean, "clean", false, "Delete existing users, posts, comments and follows first")
	flag.Int64Var(&opts.RandSeed, "rand-seed", 0, "Seed for reproducible data (0 = random)")
	groupsOnly := flag.Bool("groups-only", false, "Only ensure the built-in groups")
	flag.Parse()

	if err := run(opts, *groupsOnly); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run(opts seed.Options, groupsOnly bool) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	middleware.ConfigureLogger(cfg.Env, "")

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	ctx := context.Background()

	if groupsOnly {
		n, err := seed.BuiltInGroups(ctx, db)
		if err != nil {
			return err
		}
		fmt.Printf("built-in groups ensured: %d created\n", n)
		return nil
	}

	sum, err := seed.Seed(ctx, db, opts)
	if err != nil {
		return err
	}
	fmt.Printf("created %d groups, %d users, %d posts, %d comments, %d follows\n",
		sum.Groups, sum.Users, sum.Posts, sum.Comments, sum.Follows)
	fmt.Printf("all demo users have the password: %s\n", seed.DemoPassword)
	return nil
}
