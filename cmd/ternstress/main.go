// Copyright 2025 The Tern Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// ternstress exercises the Tern runtime: it churns the allocator and
// collector with configurable workloads and reports the collector counters.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tern-lang/tern"
	"github.com/tern-lang/tern/internal/value"
)

// tuning is the optional YAML tuning file accepted by --config.
type tuning struct {
	StackSlots  int           `yaml:"stack_slots"`
	HeapReserve int           `yaml:"heap_reserve"`
	Latency     time.Duration `yaml:"latency"`
}

// report is what stress prints, as YAML.
type report struct {
	Objects     int           `yaml:"objects"`
	Survivors   int           `yaml:"survivors"`
	Elapsed     time.Duration `yaml:"elapsed"`
	Collections uint64        `yaml:"collections"`
	Full        uint64        `yaml:"full_collections"`
	Resizes     uint64        `yaml:"resizes"`
	FixupPasses uint64        `yaml:"fixup_passes"`
	BigAllocs   uint64        `yaml:"big_allocations"`
	BigFrees    uint64        `yaml:"big_frees"`
	LiveBytes   int           `yaml:"live_bytes"`
	MarkTime    time.Duration `yaml:"mark_time"`
	CompactTime time.Duration `yaml:"compact_time"`
	MedianPause time.Duration `yaml:"median_pause"`
}

func main() {
	root := &cobra.Command{
		Use:           "ternstress",
		Short:         "stress and inspect the Tern runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(stressCmd(), limitsCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func stressCmd() *cobra.Command {
	var (
		objects    int
		objectSize int
		survive    int
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "churn the allocator and report collector counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg tuning
			if configPath != "" {
				raw, err := os.ReadFile(configPath)
				if err != nil {
					return err
				}
				if err := yaml.Unmarshal(raw, &cfg); err != nil {
					return fmt.Errorf("bad tuning file: %w", err)
				}
			}

			opts := []tern.Option{}
			if cfg.StackSlots > 0 {
				opts = append(opts, tern.WithStackSize(cfg.StackSlots))
			}
			if cfg.HeapReserve > 0 {
				opts = append(opts, tern.WithHeapReserve(cfg.HeapReserve))
			}
			if cfg.Latency > 0 {
				opts = append(opts, tern.WithLatency(cfg.Latency))
			}

			ctx, err := tern.NewContext(tern.NewProgram(), opts...)
			if err != nil {
				return err
			}
			defer func() { _ = ctx.Close() }()

			start := time.Now()
			survivors, err := churn(ctx, objects, objectSize, survive)
			if err != nil {
				return err
			}

			s := ctx.HeapStats()
			out, err := yaml.Marshal(report{
				Objects:     objects,
				Survivors:   survivors,
				Elapsed:     time.Since(start),
				Collections: s.Collections,
				Full:        s.FullCollections,
				Resizes:     s.Resizes,
				FixupPasses: s.FixupPasses,
				BigAllocs:   s.BigAllocations,
				BigFrees:    s.BigFrees,
				LiveBytes:   s.LiveBytes,
				MarkTime:    s.MarkTime,
				CompactTime: s.CompactTime,
				MedianPause: s.MedianPause,
			})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().IntVarP(&objects, "objects", "n", 100_000, "objects to allocate")
	cmd.Flags().IntVar(&objectSize, "size", 64, "approximate object size in bytes")
	cmd.Flags().IntVar(&survive, "survive", 16, "keep every k-th object live")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML tuning file")
	return cmd
}

// churn allocates strings, keeping every k-th allocation rooted
// in a rotating window so compactions always have both garbage and
// survivors to deal with.
func churn(ctx *tern.Context, objects, objectSize, survive int) (int, error) {
	const window = 64
	f, ok := ctx.Enter(window)
	if !ok {
		return 0, fmt.Errorf("ternstress: stack too small for the root window")
	}
	defer ctx.Leave(f)

	payload := make([]byte, objectSize)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}

	survivors := 0
	for i := 0; i < objects; i++ {
		v := ctx.NewString(string(payload[:max(objectSize-i%7, 0)]))
		if survive > 0 && i%survive == 0 {
			f.Locals[(survivors)%window] = v
			survivors++
		}
	}

	// Spot-check that the rooted window survived all the churn.
	for i := 0; i < min(survivors, window); i++ {
		if f.Locals[i].Tag() != value.TagString {
			return survivors, fmt.Errorf("ternstress: root %d lost its string", i)
		}
	}
	return survivors, nil
}

func limitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "print the value-model constants",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(map[string]any{
				"tag_bits":        value.NumTagBits,
				"data_bits":       value.NumDataBits,
				"heap_alignment":  value.HeapAlignment,
				"max_small_int":   int64(value.MaxSmallInt),
				"min_small_int":   int64(value.MinSmallInt),
				"first_ptr_tag":   uint32(value.PointerTag),
				"first_user_tag":  uint32(value.TagUserFirst),
				"error_tag_bit":   uint32(value.ErrorBit),
				"constant_count":  uint64(value.ConstDivideByZero) + 1,
				"small_int_range": fmt.Sprintf("[%d, %d]", int64(value.MinSmallInt), int64(value.MaxSmallInt)),
			})
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
