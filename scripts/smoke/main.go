// Command smoke probes a running timetable-api instance and reports
// per-endpoint status. Used after deploys to verify the routing surface
// before traffic is pointed at the new instance.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Expect   int    `json:"expect"`
	Critical bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type probe struct {
	Target   target
	Status   int
	Match    bool
	Err      error
	Duration time.Duration
}

func defaultTargets(schoolID string) []target {
	return []target{
		{Method: http.MethodGet, Path: "/health", Expect: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/ready", Expect: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/metrics", Expect: http.StatusOK},
		{Method: http.MethodGet, Path: "/api/v1/schools/" + schoolID + "/slots", Expect: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/api/v1/schools/" + schoolID + "/days/monday/layout", Expect: http.StatusOK},
		{Method: http.MethodGet, Path: "/api/v1/schools/" + schoolID + "/teachers", Expect: http.StatusOK},
	}
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "base URL of the running API")
	configPath := flag.String("config", "", "optional JSON file overriding the probed targets")
	schoolID := flag.String("school", "smoke-school", "school id used for tenant-scoped routes")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	targets := defaultTargets(*schoolID)
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			log.Fatalf("read config: %v", err)
		}
		var cfg config
		if err := json.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("parse config: %v", err)
		}
		targets = cfg.Targets
	}

	client := &http.Client{Timeout: *timeout}
	var failures, criticalFailures int

	for _, tgt := range targets {
		result := run(client, strings.TrimRight(*baseURL, "/"), tgt)
		status := "ok"
		if !result.Match {
			status = "FAIL"
			failures++
			if tgt.Critical {
				criticalFailures++
			}
		}
		detail := fmt.Sprintf("status=%d", result.Status)
		if result.Err != nil {
			detail = result.Err.Error()
		}
		fmt.Printf("%-4s %-6s %-55s %s (%s)\n", status, tgt.Method, tgt.Path, detail, result.Duration.Round(time.Millisecond))
	}

	fmt.Printf("\n%d target(s), %d failure(s), %d critical\n", len(targets), failures, criticalFailures)
	if criticalFailures > 0 {
		os.Exit(1)
	}
}

func run(client *http.Client, base string, tgt target) probe {
	result := probe{Target: tgt}
	expect := tgt.Expect
	if expect == 0 {
		expect = http.StatusOK
	}

	req, err := http.NewRequest(tgt.Method, base+tgt.Path, nil)
	if err != nil {
		result.Err = err
		return result
	}

	start := time.Now()
	resp, err := client.Do(req)
	result.Duration = time.Since(start)
	if err != nil {
		result.Err = err
		return result
	}
	defer resp.Body.Close()

	result.Status = resp.StatusCode
	result.Match = resp.StatusCode == expect
	return result
}
