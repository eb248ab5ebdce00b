package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/naiba/nezha-uptime/model"
	"github.com/naiba/nezha-uptime/service/form"
	"github.com/naiba/nezha-uptime/service/session"
)

func monitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Create or edit monitors",
	}
	cmd.AddCommand(monitorCreateCmd(), monitorEditCmd())
	return cmd
}

type monitorFlags struct {
	interactive bool
	form        model.MonitorForm
}

func (mf *monitorFlags) register(fs *pflag.FlagSet) {
	fs.BoolVarP(&mf.interactive, "interactive", "i", false, "交互式填写")
	fs.StringVar(&mf.form.Name, "name", "", "名称")
	fs.StringVar(&mf.form.Type, "type", model.MonitorTypeTCP, "类型")
	fs.StringVar(&mf.form.URL, "url", "", "地址")
	fs.IntVar(&mf.form.Port, "port", 0, "端口")
	fs.IntVar(&mf.form.Frequency, "frequency", model.DefaultFrequency, "检测间隔 (秒)")
	fs.IntVar(&mf.form.Timeout, "timeout", 0, "超时 (毫秒)")
	fs.StringVar(&mf.form.ResponseTime, "response-time", "", "响应时间阈值 (毫秒)")
	fs.IntVar(&mf.form.AlertThreshold, "alert-threshold", 0, "报警阈值")
	fs.StringVar(&mf.form.Connection, "connection", "", "期望连接状态")
	fs.Uint64Var(&mf.form.NotificationID, "notification", 0, "通知组ID")
	fs.BoolVar(&mf.form.Active, "active", true, "启用")
}

// apply copies the flags the user actually set onto f.
func (mf *monitorFlags) apply(fs *pflag.FlagSet, f *model.MonitorForm) {
	set := map[string]func(){
		"name":            func() { f.Name = mf.form.Name },
		"type":            func() { f.Type = mf.form.Type },
		"url":             func() { f.URL = mf.form.URL },
		"port":            func() { f.Port = mf.form.Port },
		"frequency":       func() { f.Frequency = mf.form.Frequency },
		"timeout":         func() { f.Timeout = mf.form.Timeout },
		"response-time":   func() { f.ResponseTime = mf.form.ResponseTime },
		"alert-threshold": func() { f.AlertThreshold = mf.form.AlertThreshold },
		"connection":      func() { f.Connection = mf.form.Connection },
		"notification":    func() { f.NotificationID = mf.form.NotificationID },
		"active":          func() { f.Active = mf.form.Active },
	}
	fs.Visit(func(fl *pflag.Flag) {
		if fn, ok := set[fl.Name]; ok {
			fn()
		}
	})
}

func monitorCreateCmd() *cobra.Command {
	var mf monitorFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), nil, func(s *session.Session) error {
				f := model.NewMonitorForm(conf.UserID, model.MonitorTypeTCP)
				f.Active = true
				mf.apply(cmd.Flags(), &f)
				if mf.interactive {
					if err := ask(&f); err != nil {
						return err
					}
				}
				return submit(cmd, s, f, form.ModeCreate)
			})
		},
	}
	mf.register(cmd.Flags())
	return cmd
}

func monitorEditCmd() *cobra.Command {
	var mf monitorFlags
	cmd := &cobra.Command{
		Use:   "edit <monitor-id>",
		Short: "Edit a monitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), nil, func(s *session.Session) error {
				f, err := s.Form.LoadForEdit(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				mf.apply(cmd.Flags(), &f)
				if mf.interactive {
					if err := ask(&f); err != nil {
						return err
					}
				}
				return submit(cmd, s, f, form.ModeEdit)
			})
		},
	}
	mf.register(cmd.Flags())
	return cmd
}

func submit(cmd *cobra.Command, s *session.Session, f model.MonitorForm, mode form.Mode) error {
	m, err := s.Form.Submit(cmd.Context(), f, mode)
	var ve model.ValidationError
	if errors.As(err, &ve) {
		for field, msg := range ve {
			fmt.Printf("  %s: %s\n", field, msg)
		}
		return fmt.Errorf("%s", s.Localizer.T("InvalidMonitor"))
	}
	if err != nil {
		return err
	}
	fmt.Println(m.ID)
	return nil
}

// ask fills f from terminal prompts, offering its current values as
// defaults.
func ask(f *model.MonitorForm) error {
	answers := struct {
		Name         string
		Type         string
		URL          string `survey:"url"`
		Port         string
		Frequency    string
		Timeout      string
		ResponseTime string `survey:"response_time"`
		Active       bool
	}{}
	numeric := func(ans any) error {
		if s, _ := ans.(string); s != "" {
			if _, err := strconv.Atoi(s); err != nil {
				return errors.New("please enter a number")
			}
		}
		return nil
	}
	if !model.IsMonitorType(f.Type) {
		f.Type = model.MonitorTypeTCP
	}
	qs := []*survey.Question{
		{Name: "name", Prompt: &survey.Input{Message: "Name", Default: f.Name}, Validate: survey.Required},
		{Name: "type", Prompt: &survey.Select{Message: "Type", Options: model.MonitorTypes, Default: f.Type}},
		{Name: "url", Prompt: &survey.Input{Message: "URL or host", Default: f.URL}, Validate: survey.Required},
		{Name: "port", Prompt: &survey.Input{Message: "Port", Default: strconv.Itoa(f.Port)}, Validate: numeric},
		{Name: "frequency", Prompt: &survey.Input{Message: "Check every (seconds)", Default: strconv.Itoa(f.Frequency)}, Validate: numeric},
		{Name: "timeout", Prompt: &survey.Input{Message: "Timeout (ms)", Default: strconv.Itoa(f.Timeout)}, Validate: numeric},
		{Name: "response_time", Prompt: &survey.Input{Message: "Response time (ms)", Default: f.ResponseTime}, Validate: numeric},
		{Name: "active", Prompt: &survey.Confirm{Message: "Active", Default: f.Active}},
	}
	if err := survey.Ask(qs, &answers); err != nil {
		return err
	}
	f.Name = answers.Name
	f.Type = answers.Type
	f.URL = answers.URL
	f.Port, _ = strconv.Atoi(answers.Port)
	f.Frequency, _ = strconv.Atoi(answers.Frequency)
	f.Timeout, _ = strconv.Atoi(answers.Timeout)
	f.ResponseTime = answers.ResponseTime
	f.Active = answers.Active
	return nil
}
