package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/auth"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored catalog sessions",
	Long: `Session manages the cookies used to crawl as a logged-in user. Cookies
are kept in the system keychain when available, otherwise in an encrypted
file under the user config directory. They are never written to the
repository or the output directory.`,
}

var sessionStoreCmd = &cobra.Command{
	Use:   "store <name>",
	Short: "Store a session cookie under a name",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionStore,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions with masked cookies",
	RunE:  runSessionList,
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionDelete,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionStoreCmd, sessionListCmd, sessionDeleteCmd)
}

func runSessionStore(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return err
	}

	cookie, err := promptSecret("Paste the Cookie header value: ")
	if err != nil {
		return err
	}
	if cookie == "" {
		return fmt.Errorf("cookie must not be empty")
	}

	fmt.Print("User-Agent to pair with it (empty for default): ")
	reader := bufio.NewReader(os.Stdin)
	userAgent, err := reader.ReadString('\n')
	if err != nil && userAgent == "" {
		userAgent = ""
	}

	session := &auth.Session{
		Name:         args[0],
		CookieHeader: cookie,
		UserAgent:    strings.TrimSpace(userAgent),
	}
	if err := manager.Store(session); err != nil {
		return err
	}

	fmt.Printf("session %q stored\n", args[0])
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return err
	}

	sessions, err := manager.List()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions stored")
		return nil
	}

	for _, s := range sessions {
		masked := auth.Sanitize(s)
		fmt.Printf("%-20s %s  (modified %s)\n", masked.Name, masked.CookieHeader,
			masked.LastModified.Format("2006-01-02 15:04"))
	}
	return nil
}

func runSessionDelete(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return err
	}
	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("session %q deleted\n", args[0])
	return nil
}

// promptSecret reads a line without echoing it when stdin is a terminal
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		data, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(data)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
