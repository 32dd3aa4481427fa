// cmd/run.go
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cerberus-sim/cerberus/gen"
	"github.com/cerberus-sim/cerberus/sim"
)

var (
	configPath   string
	scenarioPath string
	ticks        int
	runLogLevel  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive the Cerberus dataplane against a synthetic packet stream",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(runLogLevel)
		if err != nil {
			logrus.Fatalf("invalid log level: %s", runLogLevel)
		}
		logrus.SetLevel(level)

		cfg, err := sim.LoadConfig(configPath)
		if err != nil {
			logrus.Fatalf("loading config: %v", err)
		}
		scenario, err := gen.LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("loading scenario: %v", err)
		}
		cerberus, err := sim.NewCerberus(cfg)
		if err != nil {
			logrus.Fatalf("constructing cerberus: %v", err)
		}

		totalTicks := ticks
		if totalTicks <= 0 {
			totalTicks = cfg.Cycles
		}
		totalSubticks := scenario.DurationSubticks
		if totalTicks > 0 {
			totalSubticks = totalTicks * cfg.TickDivisor
		}

		logrus.Infof("running %d subticks (tick_divisor=%d) across %d tasks",
			totalSubticks, cfg.TickDivisor, len(cfg.TaskMatchActionTable))

		generator := gen.NewGenerator(scenario)
		tick := 0
		for subtick := 0; subtick < totalSubticks; subtick++ {
			for _, p := range generator.NextSubtick(subtick) {
				packet := p
				cerberus.Update(&packet)
			}
			cerberus.UpdateSubtick(subtick)
			if (subtick+1)%cfg.TickDivisor == 0 {
				cerberus.UpdateTick(tick)
				tick++
			}
		}

		cerberus.Stats.Print()
		logrus.Info("run complete")
	},
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "path to the Cerberus JSON configuration (required)")
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "path to the YAML scenario spec (required)")
	runCmd.Flags().IntVar(&ticks, "ticks", 0, "number of ticks to run (0 = config's cycles, falling back to the scenario's own duration)")
	runCmd.Flags().StringVar(&runLogLevel, "log", "info", "log level (debug, info, warn, error)")
	runCmd.MarkFlagRequired("config")
	runCmd.MarkFlagRequired("scenario")

	rootCmd.AddCommand(runCmd)
}
