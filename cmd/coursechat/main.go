// coursechat - терминальный клиент чата курса: вход, уведомления и чат одного курса.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/thereayou/coursechat/internal/account"
	"github.com/thereayou/coursechat/internal/apiclient"
	"github.com/thereayou/coursechat/internal/chat"
	"github.com/thereayou/coursechat/internal/config"
	"github.com/thereayou/coursechat/internal/courseview"
	"github.com/thereayou/coursechat/internal/notice"
	"github.com/thereayou/coursechat/internal/realtime"
)

const help = `commands:
  <text>              send a chat message
  /notifications      list notifications
  /read <id>          mark one notification as read
  /readall            mark all notifications as read
  /videos [query]     list or search course videos
  /retry              reload the course and reconnect
  /quit               log out and exit`

func main() {
	cfg := config.Load()

	email := flag.String("email", os.Getenv("COURSECHAT_EMAIL"), "account email")
	password := flag.String("password", os.Getenv("COURSECHAT_PASSWORD"), "account password")
	courseID := flag.String("course", "", "course id to open")
	flag.Parse()

	if *email == "" || *password == "" || *courseID == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := notice.Func(func(n notice.Notice) {
		fmt.Fprintf(os.Stderr, "! %s: %s\n", n.Title, n.Description)
	})

	base := apiclient.New(cfg.APIBaseURL, apiclient.WithTimeout(cfg.RequestTimeout))
	session, err := account.Login(ctx, base, *email, *password, notifier)
	if err != nil {
		log.Fatalf("Login failed: %v", err)
	}
	log.Printf("Logged in as %s (%s)", session.User.Name, session.User.Role)

	if err := session.SyncNotifications(ctx); err == nil {
		log.Printf("Unread notifications: %d", session.Notifications().UnreadCount())
	}

	manager := realtime.NewManager(realtime.Options{
		URL:               cfg.RealtimeURL,
		ReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectDelay:    cfg.ReconnectDelay,
	})

	view := courseview.New(courseview.Config{
		Backend:   session.API(),
		Connector: courseview.Realtime(manager),
		Identity:  session,
		Notifier:  notifier,
		Dedup:     cfg.DedupMessages,
		OnMessage: printMessage,
		OnConnection: func(s realtime.State) {
			log.Printf("Chat %s", s)
		},
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	session.OnLogout(func() {
		view.Unmount()
		cancel()
	})

	if err := view.Mount(ctx, *courseID); err != nil {
		log.Printf("Course %s not loaded: %v", *courseID, err)
	} else {
		course, _ := view.Course()
		fmt.Printf("== %s ==\n", course.Title)
		for _, m := range view.Messages() {
			printMessage(m)
		}
	}
	fmt.Println(help)

	repl(ctx, view)

	view.Unmount()
	if session.Active() {
		if err := session.Logout(context.Background()); err != nil {
			log.Printf("Logout failed: %v", err)
		}
	}
}

func repl(ctx context.Context, view *courseview.Binder) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !handleLine(ctx, view, line) {
				return
			}
		}
	}
}

// handleLine выполняет одну команду; false - выход
func handleLine(ctx context.Context, view *courseview.Binder, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return true
	case "/quit":
		return false
	case "/notifications":
		for _, n := range view.Notifications() {
			mark := " "
			if !n.Read {
				mark = "*"
			}
			fmt.Printf("%s %s  %s  -> %s\n", mark, n.ID, n.Message, n.Target())
		}
		fmt.Printf("unread: %d\n", view.UnreadCount())
	case "/read":
		if arg == "" {
			fmt.Println("usage: /read <id>")
			return true
		}
		if err := view.MarkRead(ctx, arg); err == nil {
			fmt.Printf("unread: %d\n", view.UnreadCount())
		}
	case "/readall":
		if err := view.MarkAllRead(ctx); err == nil {
			fmt.Printf("unread: %d\n", view.UnreadCount())
		}
	case "/videos":
		for _, v := range view.SearchVideos(arg) {
			fmt.Printf("%d. %s (%s)\n", v.Position+1, v.Title, v.URL)
		}
	case "/retry":
		if err := view.Retry(ctx); err != nil {
			log.Printf("Retry failed: %v", err)
		}
	default:
		if strings.HasPrefix(cmd, "/") {
			fmt.Println(help)
			return true
		}
		if err := view.SendMessage(line); err != nil {
			fmt.Fprintf(os.Stderr, "! message not sent: %v\n", err)
		}
	}
	return true
}

func printMessage(m chat.Message) {
	fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), m.DisplayName(), m.Body)
}
