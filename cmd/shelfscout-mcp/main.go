package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/shelfscout/models"
)

func main() {
	apiURL := os.Getenv("SHELFSCOUT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("SHELFSCOUT_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "SHELFSCOUT_API_KEY is required")
		os.Exit(1)
	}

	client := &apiClient{
		http:     &http.Client{Timeout: 120 * time.Second},
		baseURL:  strings.TrimRight(apiURL, "/"),
		apiKey:   apiKey,
		pollEach: 5 * time.Second,
	}

	s := server.NewMCPServer(
		"shelfscout",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	retrieveTool := mcp.NewTool("retrieve_cards",
		mcp.WithDescription("Search a store for a product term with an evasive headless browser and save the listing cards. Runs several fallback strategies and can take minutes. Returns the artifact name to pass to extract_records."),
		mcp.WithString("base_url",
			mcp.Required(),
			mcp.Description("Store home page, e.g. https://www.mercadolibre.com.ar"),
		),
		mcp.WithString("search_term",
			mcp.Required(),
			mcp.Description("Product search term"),
		),
	)
	s.AddTool(retrieveTool, handleRetrieve(client))

	extractTool := mcp.NewTool("extract_records",
		mcp.WithDescription("Turn the cards of a saved artifact into structured product records (ID, Title, Price, Image, Description) using a language model."),
		mcp.WithString("artifact",
			mcp.Required(),
			mcp.Description("Artifact file name returned by retrieve_cards"),
		),
		mcp.WithString("card_class",
			mcp.Required(),
			mcp.Description("CSS class shared by the card elements, e.g. ui-search-layout__item"),
		),
	)
	s.AddTool(extractTool, handleExtract(client))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleRetrieve(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		baseURL, err := request.RequireString("base_url")
		if err != nil {
			return mcp.NewToolResultError("base_url is required"), nil
		}
		term, err := request.RequireString("search_term")
		if err != nil {
			return mcp.NewToolResultError("search_term is required"), nil
		}

		job, err := client.retrieve(ctx, models.RetrieveRequest{BaseURL: baseURL, SearchTerm: term})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
		}
		return formatJob(job), nil
	}
}

func formatJob(job *models.RetrieveJob) *mcp.CallToolResult {
	var sb strings.Builder
	for _, a := range job.Attempts {
		fmt.Fprintf(&sb, "- %s: %s", a.Strategy, a.Outcome)
		if a.Error != nil {
			fmt.Fprintf(&sb, " [%s] %s", a.Error.Code, a.Error.Message)
		}
		sb.WriteString("\n")
	}

	if job.Status != models.JobCompleted {
		msg := "retrieval failed"
		if job.Error != nil {
			msg = fmt.Sprintf("[%s] %s", job.Error.Code, job.Error.Message)
		}
		return mcp.NewToolResultError(msg + "\n\nAttempts:\n" + sb.String())
	}
	return mcp.NewToolResultText(fmt.Sprintf("Artifact: %s\nCards: %d\nStrategy: %s\n\nAttempts:\n%s",
		job.Artifact, job.Cards, job.Strategy, sb.String()))
}

func handleExtract(client *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		artifact, err := request.RequireString("artifact")
		if err != nil {
			return mcp.NewToolResultError("artifact is required"), nil
		}
		class, err := request.RequireString("card_class")
		if err != nil {
			return mcp.NewToolResultError("card_class is required"), nil
		}

		resp, err := client.extract(ctx, models.ExtractRequest{Artifact: artifact, CardClass: class})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("extraction failed: %v", err)), nil
		}
		if !resp.Success {
			msg := "extraction failed"
			if resp.Error != nil {
				msg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
			}
			return mcp.NewToolResultError(msg), nil
		}

		records, err := json.MarshalIndent(resp.Records, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode records: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Output: %s\nCards: %d, records: %d, failed: %d\n\n%s",
			resp.Output, resp.Cards, len(resp.Records), resp.Failed, records)), nil
	}
}
