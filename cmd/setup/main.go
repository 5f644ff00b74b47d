package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/opensearch-project/opensearch-go"
	"go.uber.org/zap"

	"github.com/novapay/rag-chat-backend/internal/provision"
	"github.com/novapay/rag-chat-backend/pkg/config"
	appLogger "github.com/novapay/rag-chat-backend/pkg/logger"
)

// Provisions the analytics index and the Dashboards saved objects. Run it
// once per environment; it is safe to re-run.
func main() {
	sampleData := flag.Bool("sample-data", false, "load synthetic sample interactions")
	skipDashboards := flag.Bool("skip-dashboards", false, "only create the index")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.OpenSearch.Endpoint},
		Username:  cfg.OpenSearch.Username,
		Password:  cfg.OpenSearch.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.OpenSearch.InsecureTLS,
			},
		},
	})
	if err != nil {
		appLogger.Fatal("Failed to initialize opensearch client", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	p := provision.NewProvisioner(client, cfg.OpenSearch.Index, cfg.Dashboards.URL)

	if err := p.EnsureIndex(ctx); err != nil {
		appLogger.Fatal("Index setup failed", zap.Error(err))
	}

	if !*skipDashboards {
		if err := p.EnsureDashboards(ctx); err != nil {
			appLogger.Fatal("Dashboards setup failed", zap.Error(err))
		}
	}

	if *sampleData {
		if err := p.LoadSampleData(ctx); err != nil {
			appLogger.Fatal("Sample data load failed", zap.Error(err))
		}
	}

	appLogger.Info("Setup complete", zap.String("index", cfg.OpenSearch.Index))
}
