package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/config"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/reconcile"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/session"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/toast"
)

func main() {
	addrFlag := flag.String("addr", "", "daemon address (overrides config)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	addr := *addrFlag
	if addr == "" {
		if cfg, err := config.Load(session.ConfigPath()); err == nil {
			addr = cfg.ListenAddr
		} else {
			addr = config.DefaultListenAddr
		}
	}

	c := resty.New().
		SetBaseURL("http://" + addr).
		SetTimeout(10 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		cmdStatus(ctx, c, *jsonFlag)
	case "chats":
		cmdChats(ctx, c, args[1:], *jsonFlag)
	case "messages":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: chatctl messages <conversation-id>")
			os.Exit(1)
		}
		cmdMessages(ctx, c, args[1], *jsonFlag)
	case "send":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: chatctl send <conversation-id> <text>")
			os.Exit(1)
		}
		cmdSend(ctx, c, args[1], args[2])
	case "toast":
		cmdToast(ctx, c, args[1:], *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: chatctl [--addr <host:port>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                     Show daemon connectivity and queue depth")
	fmt.Fprintln(os.Stderr, "  chats [category] [query]   List chats for a category rail")
	fmt.Fprintln(os.Stderr, "  messages <id>              Show the reconciled message list")
	fmt.Fprintln(os.Stderr, "  send <id> <text>           Send (or queue) a message")
	fmt.Fprintln(os.Stderr, "  toast [dismiss]            Show or dismiss the current toast")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func failStatus(resp *resty.Response) {
	fmt.Fprintf(os.Stderr, "error: daemon returned %s: %s\n", resp.Status(), resp.String())
	os.Exit(1)
}

func cmdStatus(ctx context.Context, c *resty.Client, jsonOut bool) {
	var out struct {
		State        string `json:"state"`
		Connected    bool   `json:"connected"`
		PendingCount int    `json:"pendingCount"`
	}
	resp, err := c.R().SetContext(ctx).SetResult(&out).Get("/v1/status")
	if err != nil {
		fail(err)
	}
	if resp.IsError() {
		failStatus(resp)
	}
	if jsonOut {
		outputJSON(out)
		return
	}
	fmt.Printf("State:     %s\n", out.State)
	fmt.Printf("Connected: %v\n", out.Connected)
	fmt.Printf("Pending:   %d\n", out.PendingCount)
}

func cmdChats(ctx context.Context, c *resty.Client, args []string, jsonOut bool) {
	req := c.R().SetContext(ctx)
	if len(args) > 0 {
		req.SetQueryParam("category", args[0])
	}
	if len(args) > 1 {
		req.SetQueryParam("q", args[1])
	}

	var out struct {
		Chats []reconcile.Chat `json:"chats"`
	}
	resp, err := req.SetResult(&out).Get("/v1/chats")
	if err != nil {
		fail(err)
	}
	if resp.IsError() {
		failStatus(resp)
	}
	if jsonOut {
		outputJSON(out)
		return
	}
	for _, chat := range out.Chats {
		pin := " "
		if chat.IsPinned {
			pin = "*"
		}
		fmt.Printf("%s %-24s %-20s [%d] %s\n", pin, chat.ID, chat.Name, chat.UnreadCount, chat.LastMessage)
	}
}

func cmdMessages(ctx context.Context, c *resty.Client, id string, jsonOut bool) {
	var out struct {
		Messages []reconcile.Message `json:"messages"`
	}
	resp, err := c.R().SetContext(ctx).SetResult(&out).Get("/v1/chats/" + id + "/messages")
	if err != nil {
		fail(err)
	}
	if resp.IsError() {
		failStatus(resp)
	}
	if jsonOut {
		outputJSON(out)
		return
	}
	for _, m := range out.Messages {
		marker := ""
		if m.IsPending {
			marker = " (pending)"
		}
		fmt.Printf("[%s] %s: %s%s\n", m.Time, m.SenderID, m.Text, marker)
	}
}

func cmdSend(ctx context.Context, c *resty.Client, id, text string) {
	var out struct {
		Sent    bool `json:"sent"`
		Pending bool `json:"pending"`
	}
	resp, err := c.R().SetContext(ctx).
		SetBody(map[string]string{"content": text}).
		SetResult(&out).
		Post("/v1/chats/" + id + "/messages")
	if err != nil {
		fail(err)
	}
	if resp.IsError() {
		failStatus(resp)
	}
	if out.Sent {
		fmt.Println("sent")
	} else {
		fmt.Println("queued, will send when back online")
	}
}

func cmdToast(ctx context.Context, c *resty.Client, args []string, jsonOut bool) {
	if len(args) > 0 && args[0] == "dismiss" {
		resp, err := c.R().SetContext(ctx).Delete("/v1/toast")
		if err != nil {
			fail(err)
		}
		if resp.IsError() {
			failStatus(resp)
		}
		return
	}

	var out struct {
		Toast *toast.Toast `json:"toast"`
	}
	resp, err := c.R().SetContext(ctx).SetResult(&out).Get("/v1/toast")
	if err != nil {
		fail(err)
	}
	if resp.StatusCode() != http.StatusOK {
		failStatus(resp)
	}
	if jsonOut {
		outputJSON(out)
		return
	}
	if out.Toast == nil {
		fmt.Println("no toast")
		return
	}
	fmt.Printf("[%s] %s\n", out.Toast.Type, out.Toast.Message)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
