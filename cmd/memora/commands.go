package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Harshitk-cp/memora/internal/buildconfig"
	"github.com/Harshitk-cp/memora/internal/client"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxFileBytes skips files that are too large to be a single memory.
const maxFileBytes = 1 << 20

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func thinkCmd() *cobra.Command {
	var budget int
	cmd := &cobra.Command{
		Use:   "think <agent> <question>",
		Short: "Answer a question from the agent's memory",
		Long: `Answers a question using the agent's stored facts and opinions.

Opinions formed in the answer are stored in the background; they appear
in the memories of later calls, never in the current one.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			res, err := newClient().Think(ctx, args[0], strings.Join(args[1:], " "), budget)
			if err != nil {
				return err
			}
			if done, err := render(cmd.OutOrStdout(), output, res); done {
				return err
			}
			printThinkResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().IntVarP(&budget, "budget", "b", 0, "number of memories to retrieve (server default when 0)")
	return cmd
}

func searchCmd() *cobra.Command {
	var (
		budget    int
		maxTokens int
		types     []string
		trace     bool
	)
	cmd := &cobra.Command{
		Use:   "search <agent> <query>",
		Short: "Search the agent's memories",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			res, err := newClient().Search(ctx, client.SearchRequest{
				AgentID:        args[0],
				Query:          strings.Join(args[1:], " "),
				FactTypes:      types,
				ThinkingBudget: budget,
				MaxTokens:      maxTokens,
				Trace:          trace,
			})
			if err != nil {
				return err
			}
			if done, err := render(cmd.OutOrStdout(), output, res); done {
				return err
			}
			printFacts(cmd.OutOrStdout(), res.Results)
			if res.Trace != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d activated in %.3fs\n", res.Trace.ActivationCount, res.Trace.TotalTime)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&budget, "budget", "b", 0, "number of memories to retrieve")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "token limit for returned memories")
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "fact types to search (agent, world, opinion)")
	cmd.Flags().BoolVar(&trace, "trace", false, "include search timing")
	return cmd
}

func putCmd() *cobra.Command {
	var (
		factType    string
		factContext string
		date        string
		docID       string
	)
	cmd := &cobra.Command{
		Use:   "put <agent> <content>",
		Short: "Store one memory",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := client.Memory{
				Content:    strings.Join(args[1:], " "),
				FactType:   factType,
				DocumentID: docID,
			}
			if factContext != "" {
				m.Context = &factContext
			}
			if date != "" {
				t, err := parseDate(date)
				if err != nil {
					return err
				}
				m.EventDate = &t
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			f, err := newClient().Put(ctx, args[0], m)
			if err != nil {
				return err
			}
			if done, err := render(cmd.OutOrStdout(), output, f); done {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s memory %s\n", f.FactType, f.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&factType, "type", "t", "", "fact type (agent, world, opinion; default world)")
	cmd.Flags().StringVarP(&factContext, "context", "c", "", "where the fact came from")
	cmd.Flags().StringVarP(&date, "date", "d", "", "event date (2006-01-02 or RFC 3339)")
	cmd.Flags().StringVar(&docID, "document", "", "document id")
	return cmd
}

func putFilesCmd() *cobra.Command {
	var (
		recursive bool
		factType  string
		workers   int
	)
	cmd := &cobra.Command{
		Use:   "put-files <agent> <path>...",
		Short: "Store each file as a memory",
		Long: `Stores the content of each file as one memory. The file path is used as
the memory context and as its document id.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := collectFiles(args[1:], recursive)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no files found")
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()

			c := newClient()
			g, ctx := errgroup.WithContext(ctx)
			g.SetLimit(workers)

			results := make([]*client.BatchResult, len(files))
			for i, path := range files {
				g.Go(func() error {
					m, err := fileMemory(path, factType)
					if err != nil {
						return err
					}
					res, err := c.PutBatch(ctx, args[0], path, []client.Memory{m})
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					logger.Debug("stored file", zap.String("path", path))
					results[i] = res
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if done, err := render(cmd.OutOrStdout(), output, results); done {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d files\n", len(files))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into directories")
	cmd.Flags().StringVarP(&factType, "type", "t", "", "fact type for every file (default world)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "parallel uploads")
	return cmd
}

func agentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents [agent]",
		Short: "List agents, or show one with its memory counts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			c := newClient()
			if len(args) == 1 {
				a, err := c.GetAgent(ctx, args[0])
				if err != nil {
					return err
				}
				if done, err := render(cmd.OutOrStdout(), output, a); done {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s (%s)\n", a.ID, a.ExternalID, a.Name)
				for t, n := range a.FactCounts {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-8s %d\n", t, n)
				}
				return nil
			}

			agents, err := c.ListAgents(ctx)
			if err != nil {
				return err
			}
			if done, err := render(cmd.OutOrStdout(), output, agents); done {
				return err
			}
			printAgents(cmd.OutOrStdout(), agents)
			return nil
		},
	}
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if done, err := render(cmd.OutOrStdout(), output, buildconfig.VersionInfo()); done {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), buildconfig.String())
			return nil
		},
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use 2006-01-02 or RFC 3339", s)
	}
	return t, nil
}

// collectFiles expands paths into regular files. Directories are skipped
// unless recursive is set; hidden entries are always skipped.
func collectFiles(paths []string, recursive bool) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		if !recursive {
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != p && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func fileMemory(path, factType string) (client.Memory, error) {
	info, err := os.Stat(path)
	if err != nil {
		return client.Memory{}, err
	}
	if info.Size() > maxFileBytes {
		return client.Memory{}, fmt.Errorf("%s: file larger than %d bytes", path, maxFileBytes)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return client.Memory{}, err
	}
	content := strings.TrimSpace(string(raw))
	if content == "" {
		return client.Memory{}, fmt.Errorf("%s: file is empty", path)
	}
	modTime := info.ModTime().UTC()
	return client.Memory{
		Content:   content,
		Context:   &path,
		EventDate: &modTime,
		FactType:  factType,
	}, nil
}
