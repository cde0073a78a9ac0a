package cli

import (
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/pageza/recipelens/backend/internal/recipeapi"
	"github.com/pageza/recipelens/backend/internal/search"
	"github.com/pageza/recipelens/backend/internal/types"
)

func printResults(w io.Writer, state search.State, resp *types.SearchResponse) {
	if len(resp.Results) == 0 {
		fprintf(w, "No recipes found for %q.\n", state.Query)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fprintf(tw, "ID\tTITLE\tREADY\tSERVINGS\tKCAL\n")
	for _, r := range resp.Results {
		fprintf(tw, "%d\t%s\t%d min\t%d\t%s\n", r.ID, r.Title, r.ReadyInMinutes, r.Servings, number(r.Nutrition.Calories))
	}
	_ = tw.Flush()

	pages := resp.TotalPages
	if pages == 0 {
		pages = search.TotalPages(resp.TotalResults, recipeapi.DefaultPageSize)
	}
	fprintf(w, "Page %d of %d (%d results)\n", state.Page, pages, resp.TotalResults)
}

func printRecipe(w io.Writer, r *types.Recipe, excluded []types.Ingredient) {
	fprintf(w, "%s\n", r.Title)
	fprintf(w, "Ready in %d min, serves %d\n", r.ReadyInMinutes, r.Servings)

	fprintf(w, "\nIngredients:\n")
	for _, ing := range r.Ingredients {
		fprintf(w, "  [%d] %s\n", ing.ID, ingredientLine(ing))
	}
	if len(excluded) > 0 {
		names := make([]string, len(excluded))
		for i, ing := range excluded {
			names[i] = ing.Name
		}
		fprintf(w, "Excluded: %s\n", strings.Join(names, ", "))
	}

	if len(r.Instructions) > 0 {
		fprintf(w, "\nInstructions:\n")
		for i, step := range r.Instructions {
			fprintf(w, "  %d. %s\n", i+1, step)
		}
	}

	n := r.Nutrition
	dv := n.PercentDailyValues
	fprintf(w, "\nNutrition per serving:\n")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fprintf(tw, "  Calories\t%s kcal\t%d%%\n", number(n.Calories), dv.Calories)
	fprintf(tw, "  Protein\t%s g\t%d%%\n", number(n.Protein), dv.Protein)
	fprintf(tw, "  Fat\t%s g\t%d%%\n", number(n.Fat), dv.Fat)
	fprintf(tw, "  Carbohydrates\t%s g\t%d%%\n", number(n.Carbohydrates), dv.Carbohydrates)
	fprintf(tw, "  Fiber\t%s g\t%d%%\n", number(n.Fiber), dv.Fiber)
	_ = tw.Flush()
}

func ingredientLine(ing types.Ingredient) string {
	parts := make([]string, 0, 3)
	if ing.Amount != nil {
		parts = append(parts, number(*ing.Amount))
	}
	if ing.Unit != "" {
		parts = append(parts, ing.Unit)
	}
	parts = append(parts, ing.Name)
	return strings.Join(parts, " ")
}

func number(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
