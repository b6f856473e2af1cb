package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"CanonCurator/internal/app"
	"CanonCurator/internal/classifier"
	"CanonCurator/internal/usecase"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "classify <url> [title]",
		Short:       "Judge whether a source is specific, generic or ambiguous",
		Args:        cobra.RangeArgs(1, 2),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var title string
			if len(args) > 1 {
				title = args[1]
			}
			verdict := classifier.Classify(args[0], title)
			if ctx.jsonOutput() {
				return writeJSON(cmd, verdict)
			}
			rows := [][]string{
				{"verdict", string(verdict.Quality), verdict.Reason},
				{"url", string(verdict.URL.Quality), verdict.URL.Rule},
				{"title", string(verdict.Title.Quality), verdict.Title.Rule},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Quality", "Detail"}, rows, nil))
			return nil
		},
	}
}

func newInitDBCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the canon tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, cmd, func(a *app.Application) error {
				if err := a.InitSchema(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
				return nil
			})
		},
	}
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <snapshot.json>",
		Short: "Upsert authors and camps from a JSON snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open snapshot: %w", err)
			}
			defer f.Close()

			return withApp(ctx, cmd, func(a *app.Application) error {
				stats, err := a.Import(cmd.Context(), f)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, stats)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d authors, %d camps\n", stats.Authors, stats.Camps)
				return nil
			})
		},
	}
}

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Run one batch date-enrichment pass over every author with sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, cmd, func(a *app.Application) error {
				report, runErr := a.Enrich(cmd.Context())
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, report); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), usecase.FormatRunSummary(report))
				}
				return runErr
			})
		},
	}
}

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show authors ranked by curation priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, cmd, func(a *app.Application) error {
				report, err := a.Curation().CurationQueue(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}

				items := report.Queue
				if limit > 0 && len(items) > limit {
					items = items[:limit]
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.Itoa(item.Score),
						string(item.Urgency),
						item.AuthorName,
						strconv.Itoa(item.SourceCount),
						strconv.Itoa(item.CampCount),
						days(item.DaysSinceUpdate),
						strings.Join(item.Reasons, "; "),
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Score", "Urgency", "Author", "Sources", "Camps", "Days", "Reasons"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight},
				))
				s := report.Summary
				fmt.Fprintf(out, "%d authors: %d critical, %d high, %d medium, %d low; %d without sources, %d without position summary\n",
					s.Total, s.Critical, s.High, s.Medium, s.Low, s.WithoutSources, s.WithoutPositionSummary)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n queue entries (0 shows all)")
	return cmd
}

func newCoverageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "coverage",
		Short: "Show topic coverage strength per camp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, cmd, func(a *app.Application) error {
				report, err := a.Curation().TopicCoverage(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}

				rows := make([][]string, 0, len(report.AllTopics))
				for _, topic := range report.AllTopics {
					fast := ""
					if topic.IsFastMoving {
						fast = "yes"
					}
					rows = append(rows, []string{
						topic.CampName,
						topic.DomainLabel,
						string(topic.Level),
						strconv.Itoa(topic.CoverageScore),
						strconv.Itoa(topic.AuthorCount),
						strconv.Itoa(topic.SourceCount),
						days(topic.DaysSinceUpdate),
						fast,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Topic", "Domain", "Level", "Score", "Authors", "Sources", "Days", "Fast-moving"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				s := report.Summary
				fmt.Fprintf(out, "strong %d, moderate %d, weak %d, none %d; %d need attention\n",
					s.Strong, s.Moderate, s.Weak, s.None, len(report.TopicsNeedingAttention))
				return nil
			})
		},
	}
}

func newDomainsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "Show canon health per domain, stalest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, cmd, func(a *app.Application) error {
				report, err := a.Curation().Domains(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}

				rows := make([][]string, 0, len(report))
				for _, d := range report {
					rows = append(rows, []string{
						strconv.Itoa(int(d.DomainID)),
						d.DomainLabel,
						strconv.Itoa(d.CampCount),
						strconv.Itoa(d.AuthorCount),
						strconv.Itoa(d.SourceCount),
						days(d.AvgDaysSinceUpdate),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Domain", "Camps", "Authors", "Sources", "Avg days"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func newAuditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "List sources that are not specific, citable content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, cmd, func(a *app.Application) error {
				report, err := a.Curation().SourceAudit(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}

				var rows [][]string
				for _, author := range report.Authors {
					for _, f := range author.Findings {
						rows = append(rows, []string{author.AuthorName, f.Title, string(f.Verdict.Quality), f.Verdict.Reason})
					}
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"Author", "Source", "Quality", "Reason"}, rows, nil))
				s := report.Summary
				fmt.Fprintf(out, "%d sources: %d specific, %d generic, %d ambiguous\n", s.Sources, s.Specific, s.Generic, s.Ambiguous)
				return nil
			})
		},
	}
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the reporting API and run scheduled enrichment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(ctx, cmd, func(a *app.Application) error {
				return a.Serve(cmd.Context())
			})
		},
	}
}

func withApp(ctx *commandContext, cmd *cobra.Command, fn func(*app.Application) error) error {
	a, err := ctx.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func days(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
