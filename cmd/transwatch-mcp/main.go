package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/transwatch/config"
	"github.com/use-agent/transwatch/models"
	"github.com/use-agent/transwatch/monitor"
	"github.com/use-agent/transwatch/webhook"
)

// checker is the slice of *monitor.Runner the tools need.
type checker interface {
	Run(ctx context.Context) (*models.Report, error)
	RunQuiet(ctx context.Context) (*models.Report, error)
}

func main() {
	cfg := config.Load()

	// stdout carries the MCP protocol; logs go to stderr.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	runner, err := monitor.NewFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise monitor: %v\n", err)
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"transwatch",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	checkTool := mcp.NewTool("check_translation_status",
		mcp.WithDescription("Open the Bluesky Crowdin dashboard, read the Turkish translation progress and report whether translation or approval work remains."),
		mcp.WithBoolean("notify",
			mcp.Description("Send the Discord alert when work remains (default: false)"),
		),
	)
	s.AddTool(checkTool, handleCheck(runner))

	previewTool := mcp.NewTool("preview_alert",
		mcp.WithDescription("Render the Discord webhook payload that would be sent for the given progress values, without sending it."),
		mcp.WithString("translated_percent",
			mcp.Required(),
			mcp.Description("Translated percentage as shown on the dashboard, e.g. '87%'"),
		),
		mcp.WithString("approved_percent",
			mcp.Required(),
			mcp.Description("Approved percentage as shown on the dashboard, e.g. '90%'"),
		),
		mcp.WithString("words_to_translate",
			mcp.Description("Remaining word count; omit to render it as not found"),
		),
	)
	s.AddTool(previewTool, handlePreview())

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleCheck(c checker) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		run := c.RunQuiet
		if request.GetBool("notify", false) {
			run = c.Run
		}

		report, err := run(ctx)
		if err != nil {
			var ce *models.CheckError
			if errors.As(err, &ce) {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", ce.Code, ce.Message)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("check failed: %v", err)), nil
		}

		return mcp.NewToolResultText(formatReport(report)), nil
	}
}

func handlePreview() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		translated, err := request.RequireString("translated_percent")
		if err != nil {
			return mcp.NewToolResultError("[" + models.ErrCodeInvalidInput + "] translated_percent is required"), nil
		}
		approved, err := request.RequireString("approved_percent")
		if err != nil {
			return mcp.NewToolResultError("[" + models.ErrCodeInvalidInput + "] approved_percent is required"), nil
		}
		words := request.GetString("words_to_translate", "")

		result := monitor.Evaluate(models.FieldMap{
			models.FieldTranslatedPercent: fieldFromArg(translated),
			models.FieldApprovedPercent:   fieldFromArg(approved),
			models.FieldWordsToTranslate:  fieldFromArg(words),
		})

		body, err := json.MarshalIndent(webhook.BuildPayload(result), "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode payload: %v", err)), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

func fieldFromArg(v string) models.FieldValue {
	if strings.TrimSpace(v) == "" {
		return models.Missing()
	}
	return models.Found(v)
}

func formatReport(report *models.Report) string {
	res := report.Result
	var sb strings.Builder
	if res.IsThereAJob {
		sb.WriteString("Translation work remains.\n\n")
	} else {
		sb.WriteString("Translation is complete.\n\n")
	}
	fmt.Fprintf(&sb, "Translated: %s\nApproved: %s\nWords to translate: %s\n",
		res.TranslatedPercent, res.ApprovedPercent, res.WordsToTranslate)

	if len(report.MissingFields) > 0 {
		names := make([]string, len(report.MissingFields))
		for i, f := range report.MissingFields {
			names[i] = string(f)
		}
		fmt.Fprintf(&sb, "Unreadable fields: %s\n", strings.Join(names, ", "))
	}
	if report.NotifyAttempted {
		fmt.Fprintf(&sb, "Discord notified: %t\n", report.Notified)
	}
	if report.LayoutDistance > 0 {
		fmt.Fprintf(&sb, "Layout distance from pinned fingerprint: %d\n", report.LayoutDistance)
	}

	fmt.Fprintf(&sb, "\n---\nRun %s in %s", report.RunID, report.Duration.Round(time.Millisecond))
	return sb.String()
}
