package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/relaydesk/live-chat/internal/chat"
	"github.com/relaydesk/live-chat/internal/domain"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Support agent dashboard",
	Long: `Sign in as an agent and work the request queue.

Credentials come from --email/--password or CHAT_AGENT_EMAIL/CHAT_AGENT_PASSWORD.`,
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List requests, newest first",
	RunE:  runAgentList,
}

var agentAcceptCmd = &cobra.Command{
	Use:   "accept <request-id>",
	Short: "Accept a waiting request",
	Args:  cobra.ExactArgs(1),
	RunE: withDashboard(func(ctx context.Context, d *chat.Dashboard, args []string) error {
		req, err := d.Accept(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Request %s is now %s\n", req.ID, req.Status)
		return nil
	}),
}

var agentResolveCmd = &cobra.Command{
	Use:   "resolve <request-id>",
	Short: "Resolve an active request",
	Args:  cobra.ExactArgs(1),
	RunE: withDashboard(func(ctx context.Context, d *chat.Dashboard, args []string) error {
		req, err := d.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Request %s is now %s\n", req.ID, req.Status)
		return nil
	}),
}

var agentChatCmd = &cobra.Command{
	Use:   "chat <request-id>",
	Short: "Resume the conversation of an active request",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentChat,
}

func init() {
	agentCmd.AddCommand(agentListCmd, agentAcceptCmd, agentResolveCmd, agentChatCmd)
	agentCmd.PersistentFlags().String("email", os.Getenv("CHAT_AGENT_EMAIL"), "Agent email")
	agentCmd.PersistentFlags().String("password", os.Getenv("CHAT_AGENT_PASSWORD"), "Agent password")
	agentListCmd.Flags().String("search", "", "Filter by customer name")
	agentListCmd.Flags().Bool("watch", false, "Keep listening and reprint on every change")
}

// signIn logs the agent in and returns the agent participant.
func signIn(cmd *cobra.Command, e *env) (*domain.Participant, error) {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if email == "" || password == "" {
		return nil, fmt.Errorf("agent email and password are required")
	}
	session, err := e.api.LoginAgent(cmd.Context(), email, password)
	if err != nil {
		return nil, err
	}
	e.feed.SetToken(session.AccessToken)
	// Sign-in provisions the participant; this resolves it the same way an
	// in-process client would.
	return chat.NewSessionInitiator(e.api, e.api, e.logger).EnsureAgent(cmd.Context(), session.Agent.Email)
}

func openDashboard(cmd *cobra.Command) (*env, *domain.Participant, *chat.Dashboard, error) {
	e, err := setup(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	agent, err := signIn(cmd, e)
	if err != nil {
		return nil, nil, nil, err
	}
	d, err := chat.NewDashboard(*agent, chat.DashboardDeps{
		Requests:       e.api,
		Messages:       e.api,
		Feed:           e.feed,
		ClosingMessage: e.cfg.Chat.ClosingMessage,
		Logger:         e.logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return e, agent, d, nil
}

func withDashboard(fn func(ctx context.Context, d *chat.Dashboard, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		_, _, d, err := openDashboard(cmd)
		if err != nil {
			return err
		}
		return fn(cmd.Context(), d, args)
	}
}

func runAgentList(cmd *cobra.Command, _ []string) error {
	_, _, d, err := openDashboard(cmd)
	if err != nil {
		return err
	}
	query, _ := cmd.Flags().GetString("search")
	watch, _ := cmd.Flags().GetBool("watch")

	if watch {
		return d.Watch(cmd.Context(), func(list []domain.RequestSummary) {
			printRequests(chat.Search(list, query))
		})
	}
	list, err := d.List(cmd.Context())
	if err != nil {
		return err
	}
	printRequests(chat.Search(list, query))
	return nil
}

func runAgentChat(cmd *cobra.Command, args []string) error {
	e, agent, d, err := openDashboard(cmd)
	if err != nil {
		return err
	}
	req, err := d.Resume(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Chatting on request %s: %s\n", req.ID, req.Issue)
	return newConversation(e, req.ID, *agent).run(cmd.Context(), os.Stdin)
}

func printRequests(list []domain.RequestSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tCUSTOMER\tEMAIL\tCREATED\tISSUE")
	for _, r := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Status, r.ParticipantName, r.ParticipantEmail,
			r.CreatedAt.Local().Format("2006-01-02 15:04"), truncate(r.Issue, 40))
	}
	_ = w.Flush()
}
