// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bsppak

package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// Confirmation words typed by the user.
const (
	ConfirmWord = "iamsure"
	AbortWord   = "abort"
)

// PromptConfirm returns ConfirmFunc reading words from in until ConfirmWord or AbortWord.
// Other words are ignored; end of input declines.
func PromptConfirm(in io.Reader, out io.Writer) ConfirmFunc {
	return func(ctx context.Context, outputDir string) (bool, error) {
		_, _ = fmt.Fprintf(out, "Converted maps are in %s\n", outputDir)
		_, _ = fmt.Fprintln(out, "Review one of them in game before uploading.")
		_, _ = fmt.Fprintf(out, "Type %q to upload or %q to stop: ", ConfirmWord, AbortWord)

		scanner := bufio.NewScanner(in)
		scanner.Split(bufio.ScanWords)
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				return false, err
			}

			switch scanner.Text() {
			case ConfirmWord:
				return true, nil
			case AbortWord:
				return false, nil
			}
		}

		return false, scanner.Err()
	}
}
