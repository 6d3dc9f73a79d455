package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"zkproxy/client"
	"zkproxy/options"
	"zkproxy/progress"
	"zkproxy/shared"
)

// Demo: call a remote MCP tool through a zkfetch wrapper with hidden
// parameters, print the result, and wait for the attestation submission.

func main() {
	// Load .env if present; explicit environment wins
	_ = godotenv.Load()

	zkfetchURL := getEnv("ZKFETCH_URL", "https://dev.zktls.zeroproofai.com")
	targetURL := getEnv("TARGET_MCP_URL", "https://dev.agentb.zeroproofai.com/mcp")

	logger, err := shared.NewLogger(shared.LoggerConfig{
		ServiceName: "zkproxy-demo",
		Development: strings.EqualFold(os.Getenv("DEBUG"), "true"),
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	toolOpts, defaults, err := loadToolOptions()
	if err != nil {
		log.Fatalf("Failed to load tool options: %v", err)
	}

	config := client.ProxyConfig{
		URL:            zkfetchURL,
		Mode:           client.ModeZKFetch,
		ToolOptions:    toolOpts,
		DefaultOptions: defaults,
		Debug:          strings.EqualFold(os.Getenv("DEBUG"), "true"),
		Logger:         logger,
	}

	if attestationURL := os.Getenv("ATTESTATION_URL"); attestationURL != "" {
		cfg := shared.NewAttestationConfig(attestationURL)
		if stage := os.Getenv("ATTESTATION_STAGE"); stage != "" {
			cfg = cfg.WithStage(stage)
		}
		if submitter := os.Getenv("SUBMITTED_BY"); submitter != "" {
			cfg.SubmittedBy = submitter
		}
		config.Attestation = cfg
	}

	if progressURL := os.Getenv("PROGRESS_WS_URL"); progressURL != "" {
		notifier := progress.NewNotifier(progressURL, logger)
		defer notifier.Close()
		config.Sink = notifier
	}

	proxy, err := client.New(config)
	if err != nil {
		log.Fatalf("Failed to create proxy client: %v", err)
	}
	defer proxy.Close()

	fmt.Println("🔐 zkproxy demo - proof-collecting tool call")
	fmt.Printf("   zkfetch wrapper: %s\n", zkfetchURL)
	fmt.Printf("   target server:   %s\n", targetURL)
	fmt.Println()

	// Tool arguments are the request body; hiding matches the passenger
	// fields at the top level, per the tool options below.
	arguments := map[string]any{
		"passenger_name":  "Alice Johnson",
		"passenger_email": "alice@example.com",
		"from":            "NYC",
		"to":              "LAX",
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Minute)
	defer cancel()

	result, err := proxy.Call(ctx, http.MethodPost, targetURL, arguments, "book-flight")
	if err != nil {
		log.Fatalf("Proxied call failed: %v", err)
	}

	printResult(result)

	if result.Attestation != nil {
		fmt.Println("⏳ Waiting for attestation submission...")
		if err := result.Attestation.Wait(ctx); err != nil {
			fmt.Printf("   attestation failed (primary result unaffected): %v\n", err)
		} else {
			fmt.Println("   attestation submitted ✓")
		}
	}
}

// loadToolOptions reads TOOL_OPTIONS_FILE when set, otherwise falls back to
// a built-in config that hides the passenger PII of book-flight calls.
func loadToolOptions() (options.Map, *options.ToolOptions, error) {
	if path := os.Getenv("TOOL_OPTIONS_FILE"); path != "" {
		doc, err := options.LoadFile(path)
		if err != nil {
			return nil, nil, err
		}
		return doc.Tools, doc.Default, nil
	}

	return options.Map{
		"book-flight": {
			Private: &options.PrivateOptions{
				HiddenParameters: []string{"passenger_name", "passenger_email"},
			},
			Redactions: []options.RedactionRule{
				{Path: "data.result.passenger_name"},
				{Path: "data.result.passenger_email"},
			},
		},
	}, nil, nil
}

func printResult(result *client.Result) {
	fmt.Println("📦 Result:")
	if pretty, err := json.MarshalIndent(result.Data, "   ", "  "); err == nil {
		fmt.Printf("   %s\n", pretty)
	}
	if result.Proof == nil {
		fmt.Println("   (no proof collected)")
		return
	}
	fmt.Printf("   proof collected: tool=%s verified=%v onchain=%v\n",
		result.Proof.ToolName, result.Proof.Verified, result.Proof.OnchainCompatible)
	if meta := result.Proof.RedactionMetadata; meta != nil {
		fmt.Printf("   redacted fields: %d (%s)\n",
			meta.RedactedFieldCount, strings.Join(meta.RedactedPaths, ", "))
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
