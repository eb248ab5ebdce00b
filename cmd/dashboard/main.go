package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ory/graceful"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/naiba/nezha-uptime/cmd/dashboard/controller"
	"github.com/naiba/nezha-uptime/model"
	"github.com/naiba/nezha-uptime/pkg/utils"
	"github.com/naiba/nezha-uptime/service/autorefresh"
	"github.com/naiba/nezha-uptime/service/dao"
	"github.com/naiba/nezha-uptime/service/push"
)

var (
	rootCmd = &cobra.Command{
		Use:   "nezha-uptime-dashboard",
		Short: "Monitor API and push service for nezha uptime clients",
		RunE:  run,
	}
	configPath string
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "data/config.yaml", "配置文件路径")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "开启Debug")
	rootCmd.PersistentFlags().StringP("listen", "l", "", "监听地址")
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	v := viper.New()
	v.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))
	if l := cmd.PersistentFlags().Lookup("listen"); l.Changed {
		v.BindPFlag("listen", l)
	}
	var conf model.Config
	if err := conf.Read(v, utils.IfOr(utils.IsFileExists(configPath), configPath, "")); err != nil {
		return err
	}
	utils.InitLogger(conf.Debug)

	d, err := dao.Open(conf.Database.Path, conf.Debug)
	if err != nil {
		return err
	}
	seed, err := dao.LoadSeed(conf.SeedPath)
	if err != nil {
		return err
	}
	if err := d.Apply(context.Background(), seed); err != nil {
		return err
	}

	hub := push.NewHub()
	defer hub.Close()
	publishers := push.Publishers{hub}
	if conf.NATS.URL != "" {
		np, err := push.NewNATSPublisher(conf.NATS.URL, conf.NATS.Subject)
		if err != nil {
			return err
		}
		defer np.Close()
		publishers = append(publishers, np)
		log.Info().Str("url", conf.NATS.URL).Str("subject", np.Subject).Msg("[Dashboard] Publishing to NATS")
	}

	scheduler := autorefresh.NewScheduler(time.Duration(conf.AutoRefresh.Interval)*time.Second, d, publishers)
	users, err := d.AutoRefreshUsers(context.Background())
	if err != nil {
		return err
	}
	for _, userID := range users {
		if err := scheduler.Set(userID, true); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := graceful.WithDefaults(&http.Server{
		Addr: conf.Listen,
		Handler: controller.Router(controller.Options{
			Dao:       d,
			Hub:       hub,
			Publisher: publishers,
			Scheduler: scheduler,
			Debug:     conf.Debug,
			Token:     conf.Dashboard.Token,
		}),
	})
	log.Info().Str("listen", conf.Listen).Int("auto_refresh_users", len(users)).Msg("[Dashboard] Starting")
	if err := graceful.Graceful(srv.ListenAndServe, srv.Shutdown); err != nil {
		return err
	}
	log.Info().Msg("[Dashboard] Stopped")
	return nil
}
