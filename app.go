package main

import (
	"fmt"
	"os"
	"regexp"

	"github.com/elC0mpa/aws-reaper/logger"
	"github.com/elC0mpa/aws-reaper/service/awsconfig"
	awscostexplorer "github.com/elC0mpa/aws-reaper/service/costexplorer"
	awsec2 "github.com/elC0mpa/aws-reaper/service/ec2"
	"github.com/elC0mpa/aws-reaper/service/orchestrator"
	awspricing "github.com/elC0mpa/aws-reaper/service/pricing"
	sheetsreport "github.com/elC0mpa/aws-reaper/service/sheets"
	slacknotifier "github.com/elC0mpa/aws-reaper/service/slack"
	awssts "github.com/elC0mpa/aws-reaper/service/sts"
	"github.com/elC0mpa/aws-reaper/utils"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var channelRegex = regexp.MustCompile(`^#[A-Za-z\d-]+$`)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "aws-reaper",
		Usage: "warn about and clean up EC2 resources past their schedule tags",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "channel",
				Aliases: []string{"c"},
				Value:   "#bot-testing",
				Usage:   "slack channel to post summaries to",
				EnvVars: []string{"REAPER_CHANNEL"},
			},
			&cli.BoolFlag{
				Name:    "dryrun",
				Usage:   "log intended tag writes and mutations without performing them",
				EnvVars: []string{"REAPER_DRYRUN"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level (debug, info, warn, error)",
				EnvVars: []string{"REAPER_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "region",
				Value:   "us-east-1",
				Usage:   "aws region used for the initial client config",
				EnvVars: []string{"AWS_REGION"},
			},
			&cli.StringFlag{
				Name:    "profile",
				Usage:   "aws shared config profile",
				EnvVars: []string{"AWS_PROFILE"},
			},
			&cli.StringFlag{
				Name:    "slack-token",
				Usage:   "slack bot token",
				EnvVars: []string{"SLACK_BOT_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "spreadsheet-id",
				Usage:   "google sheets spreadsheet the report is written to",
				EnvVars: []string{"REPORT_SPREADSHEET_ID"},
			},
			&cli.StringFlag{
				Name:    "credentials-file",
				Usage:   "google service account credentials file",
				EnvVars: []string{"GOOGLE_APPLICATION_CREDENTIALS"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "notify",
				Usage: "audit resources, write warning markers and post the summary",
				Action: func(c *cli.Context) error {
					return run(c, "notify")
				},
			},
			{
				Name:  "execute",
				Usage: "stop or terminate resources that are due and were warned in time",
				Action: func(c *cli.Context) error {
					return run(c, "execute")
				},
			},
		},
		CommandNotFound: func(c *cli.Context, command string) {
			fmt.Fprintf(c.App.ErrWriter, "unknown command %q, expected notify or execute\n", command)
			os.Exit(1)
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.GetLogger().Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context, command string) error {
	logger.GetLogger().SetLogLevel(c.String("log-level"))

	channel := c.String("channel")
	if !channelRegex.MatchString(channel) {
		return cli.Exit(fmt.Sprintf("unexpected channel format %q, should look like #random", channel), 1)
	}

	utils.DrawBanner()

	ctx := c.Context

	cfgService := awsconfig.NewService()
	awsCfg, err := cfgService.GetAWSCfg(ctx, c.String("region"), c.String("profile"))
	if err != nil {
		return fmt.Errorf("failed to load aws config: %w", err)
	}

	pricingService := awspricing.NewService(awsCfg)
	resourceService := awsec2.NewService(awsCfg, pricingService)
	stsService := awssts.NewService(awsCfg)
	spendService := awscostexplorer.NewService(awsCfg)
	notifierService := slacknotifier.NewService(c.String("slack-token"))

	reportService, err := sheetsreport.NewService(ctx, c.String("spreadsheet-id"), c.String("credentials-file"))
	if err != nil {
		return fmt.Errorf("failed to create report service: %w", err)
	}

	orchestratorService := orchestrator.NewService(resourceService, stsService, spendService, notifierService, reportService)

	utils.StartSpinner("auditing resources across regions")

	if command == "notify" {
		return orchestratorService.Notify(ctx, channel, c.Bool("dryrun"))
	}
	return orchestratorService.Execute(ctx, channel, c.Bool("dryrun"))
}
