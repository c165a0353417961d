package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relaydesk/live-chat/internal/chat"
)

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Open a support chat as a customer",
	Long: `Fill in the contact form and chat with an agent.

Type a line to send it. "/image <path> [caption]" attaches an image,
"/quit" leaves the chat.`,
	RunE: runCustomer,
}

func init() {
	customerCmd.Flags().String("name", "", "Your name")
	customerCmd.Flags().String("email", "", "Your email")
	customerCmd.Flags().String("issue", "", "What you need help with")
}

func runCustomer(cmd *cobra.Command, _ []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.logger.Sync() //nolint:errcheck

	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	issue, _ := cmd.Flags().GetString("issue")

	widget := chat.NewWidget()
	if _, err := widget.Fire(chat.EventOpen); err != nil {
		return err
	}

	ctx := cmd.Context()
	session, err := chat.NewSessionInitiator(e.api, e.api, e.logger).Start(ctx, name, email, issue)
	if err != nil {
		return err
	}
	if _, err := widget.Fire(chat.EventSessionStarted); err != nil {
		return err
	}
	fmt.Printf("Request %s opened. An agent will be with you shortly.\n", session.RequestID())

	err = newConversation(e, session.RequestID(), session.Participant).run(ctx, os.Stdin)
	_, _ = widget.Fire(chat.EventClose)
	return err
}
