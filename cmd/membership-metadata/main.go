// membership-metadata writes token descriptor files for a collection.
//
// One <id>.json file is written per token id, 0 through count-1 unless
// --first says otherwise, into the output directory, ready to be uploaded under the collection's base URI. Values default to
// MEMBERSHIP_NAME, MEMBERSHIP_DESC, MEMBERSHIP_IMAGE_URI and
// MEMBERSHIP_COUNT; flags override them.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/xraph/membership/metadata"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	count, err := envUint("MEMBERSHIP_COUNT", 0)
	if err != nil {
		return err
	}

	gen := metadata.Generator{
		Name:        os.Getenv("MEMBERSHIP_NAME"),
		Description: os.Getenv("MEMBERSHIP_DESC"),
		ImageURI:    os.Getenv("MEMBERSHIP_IMAGE_URI"),
		Count:       count,
	}
	outDir := "metadata"

	flagSet := pflag.NewFlagSet("membership-metadata", pflag.ContinueOnError)
	flagSet.StringVarP(&outDir, "out", "o", outDir, "output directory")
	flagSet.StringVar(&gen.Name, "name", gen.Name, "collection name (default: $MEMBERSHIP_NAME)")
	flagSet.StringVar(&gen.Description, "description", gen.Description, "descriptor description (default: $MEMBERSHIP_DESC)")
	flagSet.StringVar(&gen.ImageURI, "image", gen.ImageURI, "image URI (default: $MEMBERSHIP_IMAGE_URI)")
	flagSet.StringVar(&gen.TraitType, "trait-type", metadata.DefaultTraitType, "attribute key carrying the collection name")
	flagSet.Uint64Var(&gen.First, "first", 0, "first token id; minted ids start at 0")
	flagSet.Uint64Var(&gen.Count, "count", gen.Count, "number of descriptors (default: $MEMBERSHIP_COUNT)")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if gen.Count == 0 {
		return errors.New("count must be positive; set --count or MEMBERSHIP_COUNT")
	}

	n, err := gen.Write(outDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d descriptors to %s\n", n, outDir)
	return nil
}

func envUint(key string, def uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
