package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mzyy1001/AI-Custom-service/graph"
	"github.com/mzyy1001/AI-Custom-service/log"
	"github.com/mzyy1001/AI-Custom-service/oracle"
	"github.com/mzyy1001/AI-Custom-service/store"
	storefile "github.com/mzyy1001/AI-Custom-service/store/file"
	"github.com/mzyy1001/AI-Custom-service/train"
)

func newTrainCmd() *cobra.Command {
	var (
		treePath      string
		segmentsPath  string
		outPath       string
		checkpointDir string
		redisAddr     string
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Ingest a corpus of fault-to-fix chains into a feature tree",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if outPath == "" {
				outPath = treePath
			}
			return runTrain(cmd.Context(), treePath, segmentsPath, outPath, checkpointDir, redisAddr)
		},
	}
	cmd.Flags().StringVar(&treePath, "tree", "", "graph document to load, created when missing")
	cmd.Flags().StringVar(&segmentsPath, "segments", "", "training corpus (blank-line or ### separated)")
	cmd.Flags().StringVar(&outPath, "out", "", "output path (default: overwrite --tree)")
	cmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", "", "also snapshot progress into this directory")
	cmd.Flags().StringVar(&redisAddr, "redis-cache", "", "cache oracle verdicts in redis at this address")
	_ = cmd.MarkFlagRequired("tree")
	_ = cmd.MarkFlagRequired("segments")
	return cmd
}

func runTrain(ctx context.Context, treePath, segmentsPath, outPath, checkpointDir, redisAddr string) error {
	g, err := loadOrCreateGraph(treePath)
	if err != nil {
		return err
	}

	chat, err := oracle.NewOpenAIChatFromEnv()
	if err != nil {
		return err
	}
	var cache oracle.Cache = oracle.NewMemoryCache()
	if redisAddr != "" {
		cache = oracle.NewRedisCache(oracle.RedisOptions{Addr: redisAddr})
	}
	orc := oracle.New(chat, oracle.WithCache(cache))

	segments, err := train.ParseSegmentsFile(segmentsPath)
	if err != nil {
		return err
	}
	log.Default().Info("loaded %d segments from %s", len(segments), segmentsPath)

	var checkpoints store.CheckpointStore
	if checkpointDir != "" {
		checkpoints, err = storefile.NewFileCheckpointStore(checkpointDir)
		if err != nil {
			return err
		}
	}
	runID := uuid.New().String()

	save := func(g *graph.Graph, processed, total int) error {
		if err := graph.Save(g, outPath); err != nil {
			return err
		}
		if checkpoints == nil || total == 0 {
			return nil
		}
		return checkpoints.Save(ctx, &store.Checkpoint{
			ID:            fmt.Sprintf("%s-%04d", runID, processed),
			RunID:         runID,
			Segment:       processed,
			TotalSegments: total,
			Document:      g.Document(),
			Timestamp:     time.Now(),
			Version:       1,
		})
	}

	builder := train.New(g, orc)
	if err := builder.Run(ctx, segments, save); err != nil {
		return err
	}
	log.Default().Info("training complete, %d nodes saved to %s", g.Len(), outPath)
	return nil
}

func loadOrCreateGraph(path string) (*graph.Graph, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Default().Info("no tree at %s, starting a fresh one", path)
		return graph.New(), nil
	}
	log.Default().Info("loading tree from %s", path)
	return graph.Load(path)
}
