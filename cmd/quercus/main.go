// Command quercus is the CLI for the quercus triple store: bulk-load RDF
// files, run SPARQL SELECT queries, and serve the SPARQL protocol over HTTP.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aleksaelezovic/quercus/internal/nquads"
	"github.com/aleksaelezovic/quercus/internal/rdfio"
	"github.com/aleksaelezovic/quercus/internal/service"
	"github.com/aleksaelezovic/quercus/internal/storage"
	"github.com/aleksaelezovic/quercus/pkg/rdf"
	"github.com/aleksaelezovic/quercus/pkg/server"
	"github.com/aleksaelezovic/quercus/pkg/server/results"
	"github.com/aleksaelezovic/quercus/pkg/sparql/engine"
	"github.com/aleksaelezovic/quercus/pkg/store"
)

var (
	dbPath  string
	verbose bool
	log     = logrus.New()
)

func main() {
	root := &cobra.Command{
		Use:           "quercus",
		Short:         "quercus is an embedded RDF triple store with a SPARQL query engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "./quercus_data", "database directory")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(loadCommand(), queryCommand(), serveCommand())

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func openStore() (*store.TripleStore, func(), error) {
	backing, err := storage.NewBadgerStorage(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database at %s: %w", dbPath, err)
	}
	ts := store.NewTripleStore(backing, log)
	return ts, func() { _ = backing.Close() }, nil
}

func loadCommand() *cobra.Command {
	var relabel bool

	cmd := &cobra.Command{
		Use:   "load <file>...",
		Short: "Load RDF files (.nt, .nq, .ttl) into the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			total := 0
			for _, path := range args {
				quads, err := readFile(path, relabel)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := ts.InsertQuads(quads); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				log.WithFields(logrus.Fields{"file": path, "quads": len(quads)}).Info("loaded")
				total += len(quads)
			}

			count, err := ts.Count()
			if err != nil {
				return err
			}
			fmt.Printf("loaded %d quads, store now holds %d\n", total, count)
			return nil
		},
	}
	cmd.Flags().BoolVar(&relabel, "relabel-bnodes", false, "give blank nodes fresh labels per file")
	return cmd
}

// readFile decodes one RDF file by extension. Relabeling applies to the
// N-Quads path; blank nodes in Turtle files keep their document labels.
func readFile(path string, relabel bool) ([]*rdf.Quad, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the CLI user
	if err != nil {
		return nil, err
	}

	if relabel {
		switch filepath.Ext(path) {
		case ".nq", ".nquads", ".nt":
			return nquads.NewReader(string(data)).RelabelBlankNodes().ReadAll()
		}
	}

	decoder, err := rdfio.ForPath(path)
	if err != nil {
		return nil, err
	}
	return decoder.Decode(strings.NewReader(string(data)))
}

func queryCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "query <sparql | @file>",
		Short: "Run a SPARQL SELECT query against the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queryText := args[0]
			if strings.HasPrefix(queryText, "@") {
				data, err := os.ReadFile(queryText[1:]) // #nosec G304 - path comes from the CLI user
				if err != nil {
					return err
				}
				queryText = string(data)
			}

			ts, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			result, err := engine.Run(queryText, ts, service.NewClient(log), log)
			if err != nil {
				return err
			}

			formatter, err := outputFormatter(format)
			if err != nil {
				return err
			}
			data, err := formatter.Format(results.FromResult(result))
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			fmt.Fprintf(os.Stderr, "%d rows\n", len(result.Rows))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "tsv", "output format: tsv, csv, json, xml")
	return cmd
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [addr]",
		Short: "Start the SPARQL HTTP endpoint",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := "localhost:8080"
			if len(args) == 1 {
				addr = args[0]
			}

			ts, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			count, _ := ts.Count()
			log.WithFields(logrus.Fields{"addr": addr, "quads": count}).Info("store opened")
			return server.NewServer(ts, addr, log).Start()
		},
	}
}

func outputFormatter(name string) (results.Formatter, error) {
	switch name {
	case "tsv":
		return results.TSV{}, nil
	case "csv":
		return results.CSV{}, nil
	case "json":
		return results.JSON{}, nil
	case "xml":
		return results.XML{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", name)
	}
}
