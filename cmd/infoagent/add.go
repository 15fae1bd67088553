package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jxitc/info-agent-sub000/internal/config"
	"github.com/jxitc/info-agent-sub000/pkg/concurrent"
	"github.com/jxitc/info-agent-sub000/pkg/memory/embed"
	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
	"github.com/jxitc/info-agent-sub000/pkg/memory/store"
)

var (
	addTitle  string
	addFields []string
	addEdges  []string
)

var addCmd = &cobra.Command{
	Use:   "add [content...]",
	Short: "Store a new memory",
	Example: `  infoagent add "Met Sarah at the conference" --field person=Sarah --field date=2026-08-20
  infoagent add "Sprint retro notes" --edge 12:follows`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(cfg *config.Config, backend store.Backend) error {
			content := strings.TrimSpace(strings.Join(args, " "))
			if content == "" {
				return errors.New("memory content is empty")
			}
			fields, err := parseFields(addFields)
			if err != nil {
				return err
			}
			edges, err := parseEdges(addEdges)
			if err != nil {
				return err
			}

			rec := model.MemoryRecord{
				Title:         addTitle,
				Content:       content,
				DynamicFields: fields,
				Embedding:     embed.SafeEmbed(newEmbedder(cfg), content),
				CreatedAt:     time.Now().UTC(),
			}
			id, err := backend.PutMemory(cmd.Context(), rec, edges)
			if errors.Is(err, store.ErrDuplicateContent) {
				fmt.Fprintf(cmd.OutOrStdout(), "Already stored as memory %d\n", id)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored memory %d\n", id)
			return nil
		})
	},
}

var importConcurrency int

// importLine is one JSON-lines entry of a bulk import file.
type importLine struct {
	Title   string            `json:"title"`
	Content string            `json:"content"`
	Fields  map[string]any    `json:"fields"`
	Edges   []model.GraphEdge `json:"edges"`
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Bulk-ingest memories from a JSON-lines file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(cfg *config.Config, backend store.Backend) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var lines []importLine
			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
			for scanner.Scan() {
				raw := strings.TrimSpace(scanner.Text())
				if raw == "" {
					continue
				}
				var line importLine
				if err := json.Unmarshal([]byte(raw), &line); err != nil {
					return fmt.Errorf("parse line %d: %w", len(lines)+1, err)
				}
				lines = append(lines, line)
			}
			if err := scanner.Err(); err != nil {
				return err
			}

			embedder := newEmbedder(cfg)
			ids, errs := concurrent.ParallelMap(cmd.Context(), lines, func(line importLine) (int64, error) {
				rec := model.MemoryRecord{
					Title:         line.Title,
					Content:       line.Content,
					DynamicFields: line.Fields,
					Embedding:     embed.SafeEmbed(embedder, line.Content),
					CreatedAt:     time.Now().UTC(),
				}
				return backend.PutMemory(cmd.Context(), rec, model.ValidEdges(line.Edges))
			}, importConcurrency)

			stored, dupes, failed := 0, 0, 0
			for i, err := range errs {
				switch {
				case err == nil:
					stored++
				case errors.Is(err, store.ErrDuplicateContent):
					dupes++
					fmt.Fprintf(cmd.ErrOrStderr(), "line %d: duplicate of memory %d\n", i+1, ids[i])
				default:
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "line %d: %v\n", i+1, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d memories (%d duplicates, %d failed)\n", stored, dupes, failed)
			if failed > 0 {
				return fmt.Errorf("%d lines failed", failed)
			}
			return nil
		})
	},
}

// parseFields turns k=v pairs into dynamic fields. Numeric values are kept
// as float64 so confidence siblings like person_confidence=0.9 stay numbers.
func parseFields(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q (want key=value)", pair)
		}
		if n, err := strconv.ParseFloat(value, 64); err == nil {
			fields[key] = n
		} else {
			fields[key] = value
		}
	}
	return fields, nil
}

func parseEdges(specs []string) ([]model.GraphEdge, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	edges := make([]model.GraphEdge, 0, len(specs))
	for _, raw := range specs {
		idStr, typ, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("invalid edge %q (want targetID:type)", raw)
		}
		target, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid edge target %q: %w", idStr, err)
		}
		edge := model.GraphEdge{Target: target, Type: model.EdgeType(typ)}
		if err := edge.Validate(); err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

func init() {
	addCmd.Flags().StringVar(&addTitle, "title", "", "short title for the memory")
	addCmd.Flags().StringArrayVar(&addFields, "field", nil, "dynamic field as key=value (repeatable)")
	addCmd.Flags().StringArrayVar(&addEdges, "edge", nil, "outgoing edge as targetID:type (repeatable)")
	importCmd.Flags().IntVar(&importConcurrency, "concurrency", 4, "parallel ingest workers")
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(importCmd)
}
