package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/hackhero/internal/config"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe a running server's health endpoint",
		Run: func(cmd *cobra.Command, args []string) {
			runHealth()
		},
	}
}

func runHealth() {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		os.Exit(exitConfig)
	}

	host := cfg.Server.Host
	if host == "0.0.0.0" || host == "" {
		host = "127.0.0.1"
	}
	url := fmt.Sprintf("http://%s:%d/api/health", host, cfg.Server.Port)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unreachable: %s\n", err)
		os.Exit(exitRuntime)
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	json.NewDecoder(resp.Body).Decode(&body)

	fmt.Printf("%s -> %d %s\n", url, resp.StatusCode, body.Status)
	if resp.StatusCode != http.StatusOK {
		os.Exit(exitRuntime)
	}
}
