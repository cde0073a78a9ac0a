package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pageza/recipelens/backend/internal/exclusion"
	"github.com/pageza/recipelens/backend/internal/recipeapi"
	"github.com/pageza/recipelens/backend/internal/search"
	"github.com/pageza/recipelens/backend/internal/service"
)

func (a *app) searchCmd() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search recipes by title or ingredient",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state := search.State{}.WithQuery(strings.Join(args, " "), page)
			resp, err := a.api.SearchRecipes(cmd.Context(), state.Query, state.Page, recipeapi.DefaultPageSize)
			if err != nil {
				return friendly(err)
			}
			printResults(cmd.OutOrStdout(), state, resp)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "result page")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a recipe with its nutrition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecipeID(args[0])
			if err != nil {
				return err
			}
			recipe, err := a.api.GetRecipe(cmd.Context(), id)
			if err != nil {
				return friendly(err)
			}
			printRecipe(cmd.OutOrStdout(), recipe, nil)
			return nil
		},
	}
}

func (a *app) excludeCmd() *cobra.Command {
	var ingredients []int64
	cmd := &cobra.Command{
		Use:   "exclude <id> --ingredient <id>...",
		Short: "Show a recipe recalculated without some ingredients",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecipeID(args[0])
			if err != nil {
				return err
			}
			if len(ingredients) == 0 {
				return &userError{msg: exclusion.NoSelectionMessage, err: exclusion.ErrNoSelection}
			}

			original, err := a.api.GetRecipe(cmd.Context(), id)
			if err != nil {
				return friendly(err)
			}
			session := exclusion.NewSession(a.api, original)
			for _, ing := range ingredients {
				if err := session.Toggle(ing); err != nil {
					return fmt.Errorf("ingredient %d: %w", ing, err)
				}
			}
			if err := session.Apply(cmd.Context()); err != nil {
				return friendly(err)
			}
			state := session.Snapshot()
			printRecipe(cmd.OutOrStdout(), state.Recipe, state.Excluded)
			return nil
		},
	}
	cmd.Flags().Int64SliceVarP(&ingredients, "ingredient", "i", nil, "ingredient id to exclude (repeatable)")
	return cmd
}

func (a *app) tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin token for the catalog write API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			token, err := service.NewAuthService(a.cfg.JWTSecret).GenerateToken(subject, ttl)
			if err != nil {
				return err
			}
			fprintf(cmd.OutOrStdout(), "%s\n", token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", name, "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func parseRecipeID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid recipe id %q", raw)
	}
	return id, nil
}
