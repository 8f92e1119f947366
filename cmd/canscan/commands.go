package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	appscans "github.com/bryanwahyu/canscan/internal/application/scans"
	domprofile "github.com/bryanwahyu/canscan/internal/domain/profile"
	domain "github.com/bryanwahyu/canscan/internal/domain/scans"
	domtracker "github.com/bryanwahyu/canscan/internal/domain/tracker"
)

func newScanCmd(a *app) *cobra.Command {
	var imagePath string
	var symptoms []string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one screening: upload, analyse, select symptoms, classify",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			snap, err := a.scans.StartSession(ctx, a.owner)
			if err != nil {
				return err
			}
			id := snap.SessionID
			defer a.scans.DiscardSession(ctx, a.owner, id)

			img := domain.Image{Name: filepath.Base(imagePath), Data: data}
			if _, err := a.scans.UploadImage(ctx, a.owner, id, img); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Analyzing image...")
			if _, err := a.scans.Analyze(ctx, a.owner, id, true); err != nil {
				return err
			}
			if _, err := a.scans.SetSymptoms(ctx, a.owner, id, symptoms); err != nil {
				return err
			}
			res, err := a.scans.Complete(ctx, a.owner, id)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "Image file to screen")
	cmd.Flags().StringArrayVar(&symptoms, "symptom", nil, "Symptom to report (repeatable, see 'canscan symptoms')")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func printResult(w io.Writer, r domain.ScanResult) {
	fmt.Fprintln(w, r.Verdict)
	fmt.Fprintf(w, "Risk level:     %s\n", r.RiskLevel)
	fmt.Fprintf(w, "Image match:    %t\n", r.ImageMatch)
	fmt.Fprintf(w, "Symptom score:  %d\n", r.SymptomScore)
	if len(r.Symptoms) > 0 {
		fmt.Fprintf(w, "Symptoms:       %s\n", strings.Join(r.Symptoms, ", "))
	}
	fmt.Fprintln(w, "Recommendations:")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(w, "  - %s\n", rec)
	}
}

func newResultsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Browse, export or clear the results history",
	}

	var q appscans.HistoryQuery
	var risk string
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if risk != "" {
				level, err := domain.ParseRiskLevel(risk)
				if err != nil {
					return err
				}
				q.Risk = level
			}
			page, err := a.scans.Paginate(cmd.Context(), a.owner, q)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tRISK\tMATCH\tSYMPTOMS")
			for _, r := range page.Data {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\n", r.ID, r.Timestamp.Local().Format("2006-01-02 15:04"), r.RiskLevel, r.ImageMatch, r.SymptomScore)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d results\n", page.Page, page.TotalPages, page.Total)
			return nil
		},
	}
	list.Flags().StringVar(&q.Search, "search", "", "Match verdict or symptom text")
	list.Flags().StringVar(&risk, "risk", "", "Only show low, moderate or high")
	list.Flags().StringVar(&q.Sort, "sort", appscans.SortDate, "Sort by date or risk")
	list.Flags().IntVar(&q.Page, "page", 1, "Page number")
	list.Flags().IntVar(&q.PageSize, "page-size", 20, "Results per page")

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Count results per risk level",
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := a.scans.Summary(cmd.Context(), a.owner)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total=%d high=%d moderate=%d low=%d\n", sum.Total, sum.High, sum.Moderate, sum.Low)
			return nil
		},
	}

	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the history as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.scans.Export(cmd.Context(), a.owner)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			return os.WriteFile(output, data, 0o600)
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.scans.ClearResults(cmd.Context(), a.owner, yes); err != nil {
				return fmt.Errorf("%w (pass --yes to confirm)", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "results cleared")
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	cmd.AddCommand(list, summary, export, clearCmd)
	return cmd
}

func newSymptomsCmd() *cobra.Command {
	var diary bool
	cmd := &cobra.Command{
		Use:   "symptoms",
		Short: "List the symptoms a scan accepts",
		RunE: func(cmd *cobra.Command, args []string) error {
			list := domain.Symptoms()
			if diary {
				list = domtracker.CommonSymptoms
			}
			for _, s := range list {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&diary, "diary", false, "List the symptom diary vocabulary instead")
	return cmd
}

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or set the local profile",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.profiles.Get(cmd.Context(), a.owner)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}

	var p domprofile.UserProfile
	login := &cobra.Command{
		Use:   "login",
		Short: "Save a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			saved, err := a.profiles.Login(cmd.Context(), a.owner, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", saved.Name)
			return nil
		},
	}
	login.Flags().StringVar(&p.Name, "name", "", "Full name")
	login.Flags().StringVar(&p.Email, "email", "", "Email address")
	login.Flags().StringVar(&p.Age, "age", "", "Age")
	login.Flags().StringVar(&p.Area, "area", "", "Area of residence")
	_ = login.MarkFlagRequired("name")
	_ = login.MarkFlagRequired("email")

	cmd.AddCommand(show, login)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
