// Command authorfill walks Author records that have neither a Twitter handle
// nor a has_twitter flag and fills them in interactively.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spacesedan/blogrelay/config"
	"github.com/spacesedan/blogrelay/internal/clients"
	"github.com/spacesedan/blogrelay/internal/db"
	"github.com/spacesedan/blogrelay/internal/logging"
	"github.com/spacesedan/blogrelay/internal/models"
)

func main() {
	authorFlag := flag.String("author", "", "fill a single author by exact name")
	flag.Parse()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	ctx := context.Background()

	awsCfg, err := clients.LoadAWSConfig(ctx)
	if err != nil {
		slog.Error("Failed to load AWS config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	store := db.NewBlogStore(clients.NewDynamoDBClient(awsCfg), os.Getenv("BLOGS_TABLE"))

	reader := bufio.NewReader(os.Stdin)
	for {
		if err := fetchAndFill(ctx, store, reader, *authorFlag); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				fmt.Println("Done")
				return
			}
			slog.Error("Failed to update author", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if *authorFlag != "" {
			return
		}
	}
}

func fetchAndFill(ctx context.Context, store *db.BlogStore, reader *bufio.Reader, name string) error {
	author, err := store.NextAuthorWithoutDetails(ctx, name)
	if err != nil {
		return err
	}
	fmt.Println(author.Name)

	hasHandle, err := askYesNo(reader, fmt.Sprintf("Does '%s' have a twitter handle (y/n)? ", author.Name))
	if err != nil {
		return err
	}

	if !hasHandle {
		hasTwitter := false
		author.HasTwitter = &hasTwitter
		return store.UpdateAuthor(ctx, *author)
	}

	fmt.Printf("What is the twitter handle for %s?\n", author.Name)
	handle, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	handle = strings.TrimSpace(handle)
	if !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}
	author.TwitterHandle = handle
	return store.UpdateAuthor(ctx, models.Author{
		Name:          author.Name,
		TwitterHandle: handle,
	})
}

func askYesNo(reader *bufio.Reader, prompt string) (bool, error) {
	for {
		fmt.Print(prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		switch strings.TrimSpace(line) {
		case "y":
			return true, nil
		case "n":
			return false, nil
		}
	}
}
