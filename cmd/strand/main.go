// Package main provides the Strand CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/strand-ml/strand/backend/cpu"
	"github.com/strand-ml/strand/internal/gang"
	"github.com/strand-ml/strand/internal/metrics"
	"github.com/strand-ml/strand/nn"
	"github.com/strand-ml/strand/tensor"
	"github.com/strand-ml/strand/tokenizer"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("Strand %s\n", version)
	case "encode":
		if err := runEncode(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "strand encode: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Strand - Transformer encoder stacks for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  encode     Tokenize stdin and run it through an encoder stack")
	fmt.Println("  version    Show version")
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	encoding := fs.String("encoding", "cl100k_base", "tiktoken encoding name")
	dim := fs.Int("dim", 64, "model dimension")
	numLayers := fs.Int("layers", 2, "number of encoder layers")
	heads := fs.Int("heads", 4, "attention heads")
	preNorm := fs.Bool("pre-norm", true, "use PRE norm order instead of POST")
	mask := fs.Bool("mask", false, "apply temporal span masking before encoding")
	seed := fs.Int64("seed", 1, "random seed for weights and masking")
	if err := fs.Parse(args); err != nil {
		return err
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return fmt.Errorf("no input text on stdin")
	}

	tok, err := tokenizer.NewTikToken(*encoding)
	if err != nil {
		return err
	}
	tokens, err := tok.Encode(text)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return fmt.Errorf("input produced no tokens")
	}

	backend := cpu.New()
	rng := rand.New(rand.NewSource(*seed)) //nolint:gosec // demo randomness, not security

	seqs, err := embedTokens(tokens, *dim, rng, backend)
	if err != nil {
		return err
	}

	order := nn.POST
	if *preNorm {
		order = nn.PRE
	}

	layers := make([]*nn.EncoderLayer[*cpu.Backend], *numLayers)
	for i := range layers {
		layers[i] = nn.NewEncoderLayer(nn.EncoderLayerConfig{
			ModelDim:    *dim,
			NumHeads:    *heads,
			FFNInnerDim: 4 * *dim,
			NormOrder:   order,
		}, rng, backend)
	}
	stack := nn.NewEncoderStack(layers, nn.EncoderStackConfig{
		NormOrder: order,
		ModelDim:  *dim,
	}, nil, rng, backend)
	stack.Eval()

	if *mask {
		spanLen := 10
		if len(tokens) < spanLen {
			spanLen = len(tokens)
		}
		masker := nn.NewMasker(nn.MaskerConfig{
			ModelDim:                *dim,
			TemporalSpanLen:         spanLen,
			MaxTemporalMaskProb:     0.5,
			MinNumTemporalMaskSpans: 1,
		}, rng, backend)

		var tmask *tensor.Tensor[bool, *cpu.Backend]
		seqs, tmask = masker.Forward(seqs, nil)
		fmt.Printf("masked positions: %d\n", countTrue(tmask.Data()))
	}

	out, _ := stack.Forward(seqs, nil)

	bag := metrics.NewBag()
	bag.UpdateSeqBatch(1, len(tokens), nil)
	if err := bag.Sync(context.Background(), gang.Single{}); err != nil {
		return err
	}
	step := bag.Commit()

	values := make([]float64, len(out.Data()))
	for i, v := range out.Data() {
		values[i] = float64(v)
	}

	fmt.Printf("tokens: %d (%s)\n", len(tokens), tok.Name())
	fmt.Printf("output shape: %v\n", out.Shape())
	fmt.Printf("output mean: %.4f  std: %.4f\n", stat.Mean(values, nil), stat.StdDev(values, nil))
	fmt.Printf("elements processed: %.0f\n", step["num_elements"])
	return nil
}

// embedTokens maps token IDs into a (1, seq, dim) batch via a hashed
// embedding table. Hashed buckets keep the table small regardless of
// vocabulary size; good enough for a demo with random weights.
func embedTokens(tokens []int32, dim int, rng *rand.Rand, backend *cpu.Backend) (*tensor.Tensor[float32, *cpu.Backend], error) {
	const buckets = 4096

	table := tensor.RandnFrom[float32](rng, tensor.Shape{buckets, dim}, backend)
	tableData := table.Data()

	data := make([]float32, len(tokens)*dim)
	for i, id := range tokens {
		row := int(id) % buckets
		copy(data[i*dim:(i+1)*dim], tableData[row*dim:(row+1)*dim])
	}
	return tensor.FromSlice(data, tensor.Shape{1, len(tokens), dim}, backend)
}

func countTrue(mask []bool) int {
	n := 0
	for _, v := range mask {
		if v {
			n++
		}
	}
	return n
}
