package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"jwassist-backend/lib/configutil"
	configlibsql "jwassist-backend/lib/configutil/libsql"
	"jwassist-backend/lib/pushplus"
	"jwassist-backend/lib/scrapers/jsxsd"
	"jwassist-backend/lib/telemetry"
	"jwassist-backend/lib/timezone"
	"jwassist-backend/lib/util/serviceutil"
	"jwassist-backend/services/watcher"
	watcherdb "jwassist-backend/services/watcher/db"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jwwatcher",
	Short: "jwwatcher polls the jsxsd academic portal and pushes notifications when grades, schedules, exams or evaluations change.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type PortalConfig struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
	// overrides for the page-classification strings; zero value keeps
	// the defaults
	Markers jsxsd.Markers `json:"markers"`
	// term like "2024-2025-2"; empty discovers the current term from
	// the portal
	Term string `json:"term"`
	// monday of teaching week 1, "2006-01-02"
	FirstMonday string `json:"first_monday"`
}

type PushConfig struct {
	// zero value keeps the public pushplus endpoint
	GatewayUrl string `json:"gateway_url"`
	Token      string `json:"token"`
}

type Config struct {
	Portal       PortalConfig        `json:"portal"`
	Push         PushConfig          `json:"push"`
	Database     configlibsql.Struct `json:"database"`
	AutoEvaluate bool                `json:"auto_evaluate"`
}

// builds the watcher service from config.json5 and wires up telemetry;
// the returned shutdown must run before exit so buffered spans flush
func setup(ctx context.Context) (*watcher.Service, Config, func()) {
	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	t, err := telemetry.SetupFromEnv(ctx, "jwwatcher")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	telemetry.InstrumentPerfStats(ctx)

	db, err := config.Database.OpenDB(watcherdb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}

	portal, err := jsxsd.NewClient(jsxsd.ClientOptions{
		BaseUrl: config.Portal.BaseUrl,
		Markers: config.Portal.Markers,
	})
	if err != nil {
		serviceutil.Fatal("failed to create portal client", err)
	}

	var firstMonday time.Time
	if config.Portal.FirstMonday != "" {
		firstMonday, err = time.ParseInLocation("2006-01-02", config.Portal.FirstMonday, timezone.Location)
		if err != nil {
			serviceutil.Fatal("failed to parse first_monday", err)
		}
	}

	service := watcher.NewService(watcher.Options{
		Portal: portal,
		Push: pushplus.NewClient(pushplus.ClientOptions{
			GatewayUrl: config.Push.GatewayUrl,
			Token:      config.Push.Token,
		}),
		Store:        watcher.NewStore(db),
		Term:         config.Portal.Term,
		FirstMonday:  firstMonday,
		AutoEvaluate: config.AutoEvaluate,
	})

	return service, config, func() {
		t.Shutdown(context.Background())
		db.Close()
	}
}
