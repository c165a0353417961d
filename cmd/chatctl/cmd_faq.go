package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var faqCmd = &cobra.Command{
	Use:   "faq <question>",
	Short: "Ask the FAQ bot",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		answer, err := e.api.AskFAQ(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(answer.Response)
		return nil
	},
}
