package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/insightx/insightx/internal/analysis"
	"github.com/insightx/insightx/internal/conversation"
	"github.com/insightx/insightx/internal/dataset"
	"github.com/insightx/insightx/internal/dataset/load"
	"github.com/insightx/insightx/internal/dataset/memory"
	"github.com/insightx/insightx/internal/engine"
	"github.com/insightx/insightx/internal/logger"
	"github.com/insightx/insightx/internal/nlp"
	"github.com/insightx/insightx/internal/response"
)

// cli is an interactive analytics console: one conversation session against
// a local dataset, no HTTP involved.
func main() {
	csvPath := flag.String("csv", os.Getenv("DATASET_FILE"), "path to the CSV dataset; synthetic data when empty")
	syntheticRows := flag.Int("synthetic-rows", 50000, "row count for the synthetic dataset")
	flag.Parse()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	var accessor dataset.Accessor
	if *csvPath != "" {
		rows, err := load.NewCSVLoader(log).FromFile(*csvPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *csvPath).Msg("Failed to load dataset")
		}
		accessor = memory.NewStore(rows)
	} else {
		accessor = memory.NewStore(load.Synthetic(*syntheticRows, 1))
	}

	dict := nlp.NewDictionary()
	sessions := conversation.NewStore(conversation.DefaultTTL)
	eng := engine.NewService(log, dict, sessions, analysis.NewBuilder(accessor),
		response.NewGenerator(log, nil))

	fmt.Println("InsightX console. Ask about the transaction dataset.")
	fmt.Println("Commands: :reset, :history, :quit")

	sessionID := ""
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case ":quit", ":q":
			return
		case ":reset":
			if sessions.Reset(sessionID) {
				fmt.Println("Session reset.")
			}
			continue
		case ":history":
			printHistory(sessions, sessionID)
			continue
		}

		resp, err := eng.Analyze(ctx, sessionID, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		sessionID = resp.SessionID

		if resp.Clarification != nil {
			fmt.Printf("? %s (options: %s)\n",
				resp.Clarification.Question, strings.Join(resp.Clarification.Options, ", "))
			continue
		}
		fmt.Printf("[%s, confidence %.2f]\n%s\n", resp.Intent, resp.Confidence, resp.Explanation)
	}
}

func printHistory(sessions *conversation.Store, sessionID string) {
	turns, ok := sessions.History(sessionID)
	if !ok || len(turns) == 0 {
		fmt.Println("No history yet.")
		return
	}
	for i, t := range turns {
		fmt.Printf("%d. [%s] %s\n   %s\n", i+1, t.Intent, t.Query, t.ResponseSummary)
	}
}
