// Command checkpoint-demo builds a small shuffled, repeated pipeline,
// consumes it while periodically persisting its position to disk, and
// resumes from the persisted position on restart. Kill it mid-run and
// start it again to watch it continue without skipping or repeating
// items.
//
// Configuration comes from the environment (a .env file is honored):
//
//	CHECKPOINT_FILE  path of the checkpoint (default checkpoint.json)
//	EPOCHS           number of passes over the corpus (default 3)
//	SHUFFLE_SEED     deterministic shuffle seed (default 42)
//	CHECKPOINT_EVERY items between checkpoints (default 5)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/sysuresh/datapipe"
)

var corpus = []string{
	"the quick brown fox",
	"jumps over the lazy dog",
	"pack my box",
	"with five dozen liquor jugs",
	"how vexingly quick",
	"daft zebras jump",
	"sphinx of black quartz",
	"judge my vow",
}

func main() {
	_ = godotenv.Load()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	checkpointFile := envOr("CHECKPOINT_FILE", "checkpoint.json")
	epochs := envInt(log, "EPOCHS", 3)
	seed := envInt(log, "SHUFFLE_SEED", 42)
	every := envInt(log, "CHECKPOINT_EVERY", 5)

	pipe, err := datapipe.FromSlice("corpus", corpus).
		Shuffle("shuffle", len(corpus), uint64(seed)). //nolint:gosec
		Repeat("epochs", epochs).
		Build()
	if err != nil {
		log.Fatal().Err(err).Msg("build pipeline")
	}
	defer pipe.Close()

	ctx := context.Background()

	if data, err := os.ReadFile(checkpointFile); err == nil {
		tape, err := decodeTape(data)
		if err != nil {
			log.Fatal().Err(err).Str("file", checkpointFile).Msg("decode checkpoint")
		}
		if err := pipe.Restore(ctx, tape, datapipe.Strict); err != nil {
			log.Fatal().Err(err).Msg("restore position")
		}
		log.Info().Str("file", checkpointFile).Msg("resumed from checkpoint")
	}

	consumed := 0
	err = pipe.ForEach(ctx, func(line string) error {
		consumed++
		log.Info().Int("n", consumed).Str("item", line).Msg("consumed")
		if consumed%every == 0 {
			if err := saveCheckpoint(ctx, pipe, checkpointFile); err != nil {
				return err
			}
			log.Info().Str("file", checkpointFile).Msg("checkpoint written")
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline failed")
	}

	_ = os.Remove(checkpointFile)
	log.Info().Int("items", consumed).Msg("stream exhausted, checkpoint removed")
}

func saveCheckpoint(ctx context.Context, pipe *datapipe.Pipeline[string], path string) error {
	tape, err := pipe.Position(ctx, datapipe.Strict)
	if err != nil {
		return err
	}
	data, err := encodeTape(tape)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// tapeEntry is the on-disk form of one tape entry. The tape's in-memory
// types must survive the round trip exactly, so every value is tagged
// and carried as a string; plain JSON numbers would come back as
// float64.
type tapeEntry struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func encodeTape(t *datapipe.Tape) ([]byte, error) {
	entries := t.Entries()
	out := make([]tapeEntry, 0, len(entries))
	for i, e := range entries {
		switch v := e.(type) {
		case bool:
			out = append(out, tapeEntry{Type: "bool", Value: strconv.FormatBool(v)})
		case int64:
			out = append(out, tapeEntry{Type: "int", Value: strconv.FormatInt(v, 10)})
		case uint64:
			out = append(out, tapeEntry{Type: "uint", Value: strconv.FormatUint(v, 10)})
		case string:
			out = append(out, tapeEntry{Type: "string", Value: v})
		default:
			return nil, fmt.Errorf("tape entry %d has unencodable type %T", i, e)
		}
	}
	return json.Marshal(out)
}

func decodeTape(data []byte) (*datapipe.Tape, error) {
	var entries []tapeEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	values := make([]any, 0, len(entries))
	for i, e := range entries {
		switch e.Type {
		case "bool":
			v, err := strconv.ParseBool(e.Value)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			values = append(values, v)
		case "int":
			v, err := strconv.ParseInt(e.Value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			values = append(values, v)
		case "uint":
			v, err := strconv.ParseUint(e.Value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			values = append(values, v)
		case "string":
			values = append(values, e.Value)
		default:
			return nil, fmt.Errorf("entry %d: unknown type %q", i, e.Type)
		}
	}
	return datapipe.RestoredTape(values), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(log zerolog.Logger, key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatal().Err(err).Str("var", key).Msg("invalid integer in environment")
	}
	return n
}
