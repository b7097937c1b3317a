package cmd

import (
	"context"
	"fmt"
	"os"

	"jwassist-backend/lib/util/serviceutil"
	"jwassist-backend/services/watcher"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(allCmd)
	rootCmd.AddCommand(gradesCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(examsCmd)
	rootCmd.AddCommand(evaluationsCmd)
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Poll every domain once.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := serviceutil.SignalContext()
		service, config, shutdown := setup(ctx)
		defer shutdown()

		results, err := service.RunAll(ctx, config.Portal.Username, config.Portal.Password)
		for domain, result := range results {
			reportResult(domain, result)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

var gradesCmd = &cobra.Command{
	Use:   "grades",
	Short: "Poll the regular-grades table once.",
	Run: func(cmd *cobra.Command, args []string) {
		runDomain("grades", (*watcher.Service).RunGrades)
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Poll the current teaching week's timetable once.",
	Run: func(cmd *cobra.Command, args []string) {
		runDomain("schedule", (*watcher.Service).RunSchedule)
	},
}

var examsCmd = &cobra.Command{
	Use:   "exams",
	Short: "Poll the exam roster once.",
	Run: func(cmd *cobra.Command, args []string) {
		runDomain("exams", (*watcher.Service).RunExams)
	},
}

var evaluationsCmd = &cobra.Command{
	Use:   "evaluations",
	Short: "Poll open course-evaluation batches once.",
	Run: func(cmd *cobra.Command, args []string) {
		runDomain("evaluations", (*watcher.Service).RunEvaluations)
	},
}

func runDomain(name string, run func(*watcher.Service, context.Context) (watcher.RunResult, error)) {
	ctx := serviceutil.SignalContext()
	service, config, shutdown := setup(ctx)
	defer shutdown()

	if err := service.Login(ctx, config.Portal.Username, config.Portal.Password); err != nil {
		serviceutil.Fatal("login failed", err)
	}

	result, err := run(service, ctx)
	if err != nil {
		serviceutil.Fatal(fmt.Sprintf("%s run failed", name), err)
	}
	reportResult(name, result)
}

func reportResult(domain string, result watcher.RunResult) {
	switch {
	case !result.Changed:
		fmt.Printf("%s: no changes\n", domain)
	case result.Pushed:
		fmt.Printf("%s: changed, notification sent\n", domain)
	default:
		fmt.Printf("%s: changed, notification failed: %v\n", domain, result.PushErr)
	}
}
