package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/naiba/nezha-uptime/model"
	"github.com/naiba/nezha-uptime/pkg/utils"
	"github.com/naiba/nezha-uptime/service/reconciler"
	"github.com/naiba/nezha-uptime/service/session"
)

var (
	rootCmd = &cobra.Command{
		Use:   "nezha-uptime",
		Short: "Watch and manage uptime monitors of a nezha uptime dashboard",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
		SilenceUsage: true,
	}
	configPath string
	conf       model.Config
	v          = viper.New()
)

func main() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "data/uptime.yaml", "配置文件路径")
	flags.BoolP("debug", "d", false, "开启Debug")
	flags.StringP("user", "u", "", "用户ID")
	flags.String("lang", "", "通知语言 (en-US, zh-CN)")
	flags.String("dashboard", "", "面板地址")
	v.BindPFlag("debug", flags.Lookup("debug"))
	v.BindPFlag("user_id", flags.Lookup("user"))
	v.BindPFlag("language", flags.Lookup("lang"))
	v.BindPFlag("dashboard.url", flags.Lookup("dashboard"))

	rootCmd.AddCommand(watchCmd(), refreshCmd(), autoRefreshCmd(), viewCmd(), listCmd(), monitorCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	if err := conf.Read(v, utils.IfOr(utils.IsFileExists(configPath), configPath, "")); err != nil {
		return err
	}
	utils.InitLogger(conf.Debug)
	return nil
}

// withSession opens and starts a session, runs fn and closes it.
func withSession(ctx context.Context, location url.Values, fn func(*session.Session) error) error {
	opts := session.Options{}
	if location != nil {
		opts.Location = location
	}
	s, err := session.New(&conf, opts)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Start(ctx); err != nil {
		return err
	}
	return fn(s)
}

func printState(s *session.Session) {
	fmt.Print(render(s.Reconciler.Snapshot(), s.Reconciler.Page()))
}

func watchCmd() *cobra.Command {
	var open bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the monitor list in sync and redraw it on every change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			location := url.Values{}
			if open {
				location.Set("open", "true")
			}
			return withSession(ctx, location, func(s *session.Session) error {
				s.Reconciler.OnChange(func(state reconciler.State) {
					fmt.Print("\033[H\033[2J")
					fmt.Print(render(state, s.Reconciler.Page()))
				})
				printState(s)
				<-ctx.Done()
				log.Info().Msg("[Uptime] Bye")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&open, "open", false, "以打开创建窗口的状态启动")
	return cmd
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the monitor list once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), nil, func(s *session.Session) error {
				if err := s.Reconciler.Refresh(cmd.Context()); err != nil {
					return err
				}
				printState(s)
				return nil
			})
		},
	}
}

func autoRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auto-refresh",
		Short: "Toggle server side auto refresh for the user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), nil, func(s *session.Session) error {
				if err := s.Reconciler.ToggleAutoRefresh(cmd.Context()); err != nil {
					return err
				}
				fmt.Println("auto refresh:", s.Reconciler.Snapshot().UI.EnableRefresh)
				return nil
			})
		},
	}
}

func viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "view [box|table]",
		Short:     "Show or set the listing view mode",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(model.ViewBox), string(model.ViewTable)},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session.New(&conf, session.Options{})
			if err != nil {
				return err
			}
			defer s.Close()
			if len(args) == 1 {
				if err := s.Reconciler.SetView(model.ViewMode(args[0])); err != nil {
					return err
				}
			}
			fmt.Println(s.Reconciler.View())
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of monitors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), nil, func(s *session.Session) error {
				if err := s.Reconciler.SetPageSize(conf.PageSize); err != nil {
					return fmt.Errorf("page size %d: %w", conf.PageSize, err)
				}
				s.Reconciler.Goto(page)
				printState(s)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 0, "页码, 从 0 开始")
	cmd.Flags().Int("page-size", 0, "每页数量")
	v.BindPFlag("page_size", cmd.Flags().Lookup("page-size"))
	return cmd
}
