package feeds

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/julianstephens/weekcal/internal/cli"
	"github.com/julianstephens/weekcal/internal/feed"
)

type FeedIssueCmd struct {
	TTL time.Duration `help:"How long the token stays valid (e.g. 720h). Defaults to the server config token_ttl."`
}

func (c *FeedIssueCmd) Run(ctx *cli.Context) error {
	issued, err := ctx.Publisher.IssueToken(ctx.Context(), c.TTL)
	if err != nil {
		return err
	}

	fmt.Println("Feed token issued. It is shown only once; store it somewhere safe.")
	fmt.Printf("  Token:      %s\n", issued.Token)
	fmt.Printf("  Subscribe:  %s\n", issued.WebcalURL)
	fmt.Printf("  HTTPS:      %s\n", issued.HTTPSURL)
	fmt.Printf("  Expires at: %s\n", issued.ExpiresAt.Format(time.RFC3339))
	return nil
}

type FeedListCmd struct{}

func (c *FeedListCmd) Run(ctx *cli.Context) error {
	tokens, err := ctx.Store.ListTokens()
	if err != nil {
		return fmt.Errorf("failed to list feed tokens: %w", err)
	}
	if len(tokens) == 0 {
		fmt.Println("No feed tokens issued.")
		return nil
	}

	now := ctx.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HASH\tCREATED\tEXPIRES\tSTATE")
	for _, t := range tokens {
		state := "active"
		if t.Expired(now) {
			state = "expired"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", feed.ShortHash(t.Hash), t.CreatedAt.Format(time.RFC3339), t.ExpiresAt.Format(time.RFC3339), state)
	}
	return w.Flush()
}

type FeedRevokeCmd struct {
	Token string `arg:"" help:"Raw token, or a hash prefix from 'feed list' with --hash."`
	Hash  bool   `help:"Treat the argument as a token hash prefix."`
	Yes   bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *FeedRevokeCmd) Run(ctx *cli.Context) error {
	if !c.Hash {
		if err := cli.Confirm("Revoke this feed token? Subscribed calendars will stop updating.", c.Yes); err != nil {
			return err
		}
		if err := ctx.Publisher.RevokeToken(ctx.Context(), c.Token); err != nil {
			return err
		}
		fmt.Println("✓ Feed token revoked")
		return nil
	}

	hash, err := resolveHash(ctx, c.Token)
	if err != nil {
		return err
	}
	if err := cli.Confirm(fmt.Sprintf("Revoke feed token %s?", feed.ShortHash(hash)), c.Yes); err != nil {
		return err
	}
	if err := ctx.Publisher.RevokeHash(ctx.Context(), hash); err != nil {
		return err
	}
	fmt.Printf("✓ Feed token %s revoked\n", feed.ShortHash(hash))
	return nil
}

func resolveHash(ctx *cli.Context, prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < 6 {
		return "", fmt.Errorf("hash prefix must be at least 6 characters")
	}
	tokens, err := ctx.Store.ListTokens()
	if err != nil {
		return "", fmt.Errorf("failed to list feed tokens: %w", err)
	}
	var matches []string
	for _, t := range tokens {
		if strings.HasPrefix(t.Hash, prefix) {
			matches = append(matches, t.Hash)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no feed token matches %s", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%d feed tokens match %s; use a longer prefix", len(matches), prefix)
	}
}

type FeedPruneCmd struct{}

func (c *FeedPruneCmd) Run(ctx *cli.Context) error {
	n, err := ctx.Publisher.PruneExpired(ctx.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d expired feed token(s).\n", n)
	return nil
}
