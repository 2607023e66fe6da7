package cmd

import (
	"fmt"
	"io"
	"os"

	"shopfront/swatch"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// maxPaletteFileSize guards against loading huge files by mistake.
const maxPaletteFileSize = 1 << 20

// paletteFile is the on-disk palette format. JSON files parse too.
type paletteFile struct {
	Name   string        `yaml:"name" validate:"max=100"`
	Colors []swatch.Item `yaml:"colors" validate:"required,min=1,max=32,unique=ID,dive"`
}

func newSwatchesCmd() *cobra.Command {
	var (
		selectControl string
		outputFile    string
	)

	swatchesCmd := &cobra.Command{
		Use:   "swatches FILE",
		Short: "Render a palette file as a color radio group",
		Long: `Render a palette file (YAML or JSON) as the HTML color radio group.

The first color is selected unless --select names another control
(for example --select mainCl-b). The selected color is reported on stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := loadPaletteFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			return renderSwatches(cmd, items, selectControl, out)
		},
	}

	swatchesCmd.Flags().StringVar(&selectControl, "select", "", "Control ID to select, e.g. "+swatch.ControlID("a"))
	swatchesCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write HTML to a file instead of stdout")
	return swatchesCmd
}

func loadPaletteFile(path string) ([]swatch.Item, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read palette file: %w", err)
	}
	if info.Size() > maxPaletteFileSize {
		return nil, fmt.Errorf("palette file too large: %d bytes (max %d)", info.Size(), maxPaletteFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read palette file: %w", err)
	}

	var pf paletteFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse palette file: %w", err)
	}
	if err := validator.New().Struct(pf); err != nil {
		return nil, fmt.Errorf("invalid palette file: %w", err)
	}
	return pf.Colors, nil
}

func renderSwatches(cmd *cobra.Command, items []swatch.Item, control string, out io.Writer) error {
	var reported string
	group := swatch.NewGroup(items, func(color string) { reported = color })
	group.Mount()

	status := cmd.ErrOrStderr()
	if control != "" {
		if _, ok := group.Select(control); !ok {
			warningColor.Fprintf(status, "No color matches control %q, keeping %s\n", control, group.Value())
		}
	}

	for _, item := range group.Items() {
		if !swatch.IsColor(item.Color) {
			infoColor.Fprintf(status, "Color %q of %s is not a hex, rgb or hsl value\n", item.Color, swatch.ControlID(item.ID))
		}
	}

	if err := group.Render(out); err != nil {
		return fmt.Errorf("failed to render swatches: %w", err)
	}

	if reported == "" {
		reported = group.Value()
	}
	successColor.Fprintf(status, "Selected color: %s\n", reported)
	return nil
}
