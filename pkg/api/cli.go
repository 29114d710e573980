package api

import (
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/latemate/latemate/pkg/hsp/hspclient"
	"github.com/latemate/latemate/pkg/redis_client"
	"github.com/latemate/latemate/pkg/resources"
	"github.com/latemate/latemate/pkg/util"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Provides the Late Mate web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
					},
					&cli.StringFlag{
						Name:  "reference-file",
						Value: "",
						Usage: "path to the Darwin timetable reference XML",
					},
				},
				Action: func(c *cli.Context) error {
					env := util.GetEnvironmentVariables()

					if env["LATEMATE_REDIS_ADDRESS"] != "" {
						if err := redis_client.Connect(); err != nil {
							return err
						}
					} else {
						log.Info().Msg("No redis configured, HSP response cache disabled")
					}

					referenceFile := c.String("reference-file")
					if referenceFile == "" {
						referenceFile = env["LATEMATE_REFERENCE_FILE"]
					}

					lookup := resources.Load(referenceFile)
					client := hspclient.New(lookup)

					return SetupServer(c.String("listen"), lookup, client)
				},
			},
		},
	}
}
