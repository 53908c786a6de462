package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"storyhub/internal/content"
	"storyhub/internal/grpcserver"
	"storyhub/internal/pager"
	"storyhub/pkg/models"
)

func browseCommand() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Page through the catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "all, webtoon or novel", Value: "all"},
			&cli.StringFlag{Name: "sort", Usage: "popularity, rating, views, recommend or newest", Value: "popularity"},
			&cli.StringFlag{Name: "title"},
			&cli.StringFlag{Name: "author"},
			&cli.StringFlag{Name: "genre"},
			&cli.StringSliceFlag{Name: "keyword", Usage: "required tag, repeatable"},
			&cli.StringSliceFlag{Name: "block-genre", Usage: "excluded genre, repeatable"},
			&cli.StringSliceFlag{Name: "block-tag", Usage: "excluded tag, repeatable"},
			&cli.BoolFlag{Name: "adult", Usage: "include adult content (signed-in users also need it enabled in preferences)"},
			&cli.IntFlag{Name: "page-size", Value: pager.DefaultPageSize},
			&cli.IntFlag{Name: "pages", Usage: "how many pages to load", Value: 1},
			&cli.StringFlag{Name: "grpc", Usage: "read over gRPC from this address instead of HTTP"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f := content.Filter{
				Kind:             content.KindFilter(cmd.String("type")),
				SortBy:           content.SortBy(cmd.String("sort")),
				Title:            cmd.String("title"),
				Author:           cmd.String("author"),
				Genre:            cmd.String("genre"),
				Keywords:         cmd.StringSlice("keyword"),
				BlockedGenres:    cmd.StringSlice("block-genre"),
				BlockedTags:      cmd.StringSlice("block-tag"),
				ShowAdultContent: cmd.Bool("adult"),
			}
			if err := f.Validate(); err != nil {
				return err
			}

			token, _ := readToken(cmd.String("token-file"))
			fetcher, closeFn, err := newFetcher(cmd.String("api"), cmd.String("grpc"), token)
			if err != nil {
				return err
			}
			defer closeFn()

			return browse(ctx, fetcher, f, cmd.Int("page-size"), cmd.Int("pages"))
		},
	}
}

func newFetcher(apiURL, grpcAddr, token string) (pager.Fetcher, func(), error) {
	if grpcAddr == "" {
		return pager.NewHTTPFetcher(apiURL, token), func() {}, nil
	}
	conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("grpc dial %s: %w", grpcAddr, err)
	}
	return grpcserver.NewClient(conn, token), func() { conn.Close() }, nil
}

func browse(ctx context.Context, fetcher pager.Fetcher, f content.Filter, pageSize, pages int) error {
	c := pager.New(fetcher, pager.WithPageSize(pageSize))
	c.SetFilter(f)
	c.Wait()

	printed := 0
	for loaded := 1; ; loaded++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		snap := c.Snapshot()
		if snap.State == pager.Error {
			return snap.Err
		}
		printItems(os.Stdout, snap.Items[printed:], printed)
		printed = len(snap.Items)

		if loaded >= pages || !snap.HasMore {
			if !snap.HasMore {
				fmt.Println("-- end of results --")
			}
			return nil
		}
		if !c.LoadMore() {
			return nil
		}
		c.Wait()
	}
}

func printItems(out *os.File, items []models.ContentItem, start int) {
	if len(items) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tTYPE\tTITLE\tAUTHOR\tGENRE\tRATING\tVIEWS")
	for i, it := range items {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%d\n",
			start+i+1, it.ID, it.Type, truncate(it.Title, 40), it.Author, it.Genre,
			strconv.FormatFloat(it.Rating, 'f', 2, 64), it.Views)
	}
	w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
