package commands

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nexconsult/gstin-api/internal/client"
	"github.com/spf13/cobra"
)

var (
	prompt    bool
	imagePath string
)

func init() {
	verifyCmd.Flags().BoolVar(&prompt, "prompt", false, "Ask for the CAPTCHA solution on stdin and resume.")
	verifyCmd.Flags().StringVar(&imagePath, "image", "captcha.png", "Where to write the CAPTCHA image.")
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify <gstin> [--prompt]",
	Short: "Verifies a GSTIN, saving the CAPTCHA image when the portal asks for one.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		res, err := c.Verify(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if res.Challenge == nil {
			return printJSON(cmd.OutOrStdout(), res.Record)
		}

		if err := writeDataURI(imagePath, res.Challenge.Image); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "CAPTCHA saved to %s\n", imagePath)

		if !prompt {
			fmt.Fprintln(cmd.ErrOrStderr(), "Run `gstctl resume <solution>` with the characters in the image.")
			return nil
		}

		fmt.Fprint(cmd.ErrOrStderr(), "Solution: ")
		solution, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read solution: %w", err)
		}
		return resume(cmd, c, strings.TrimSpace(solution))
	},
}

func resume(cmd *cobra.Command, c *client.Client, solution string) error {
	if solution == "" {
		return fmt.Errorf("empty CAPTCHA solution")
	}
	res, err := c.Resume(cmd.Context(), solution)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res.Record)
}

// writeDataURI decodes a data:image/png;base64 URI to path
func writeDataURI(path, uri string) error {
	_, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(uri, "data:") {
		return fmt.Errorf("challenge image is not a data URI")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("failed to decode challenge image: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
