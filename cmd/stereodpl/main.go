package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/stereodpl/dpl"
	"github.com/stereodpl/dpl/config"
	"github.com/stereodpl/dpl/consumer"
	"github.com/stereodpl/dpl/frame"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runReplay(os.Args[2:])
	case "params":
		err = runParams(os.Args[2:])
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "stereodpl: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "stereodpl: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  stereodpl run [options] <replay-dir>     Replay a directory of raw stereo pairs through the engine
  stereodpl params [options] <stage-index> Print a stage's current parameters

Run "stereodpl <command> -h" for command-specific options.
`)
}

// --- run ---

func runReplay(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	width := fs.Int("w", 1280, "image width")
	height := fs.Int("h", 720, "image height")
	depth := fs.Int("depth", 4, "ingress/egress ring depth")
	camera := fs.String("camera", "Generic", "camera model tag")
	cfgDir := fs.String("config-dir", ".", "parameter-file directory")
	matching := fs.Bool("matching", true, "enable stereo matching")
	filtering := fs.Bool("filter", true, "enable disparity filtering")
	mqttBroker := fs.String("mqtt", "", "MQTT broker URL to publish result summaries to (disabled if empty)")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("run: expected exactly one replay directory argument")
	}
	replayDir := fs.Arg(0)

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	stages := config.StageBits(0)
	if *matching {
		stages |= config.StageStereoMatching
	} else {
		stages |= config.StageFrameDecoder
	}
	if *filtering {
		stages |= config.StageDisparityFilter
	}

	eng, err := dpl.New(config.EngineConfig{
		MaxImageWidth:  *width,
		MaxImageHeight: *height,
		MaxBufferCount: *depth,
		EnabledStages:  stages,
		ConfigFileDir:  *cfgDir,
		CameraModel:    *camera,
	}, log)
	if err != nil {
		return err
	}

	src, err := newReplaySource(replayDir, *width, *height)
	if err != nil {
		return err
	}

	var mqttPub *consumer.MQTTPublisher
	if *mqttBroker != "" {
		mqttPub = consumer.NewMQTTPublisher(consumer.MQTTConfig{
			BrokerURL: *mqttBroker,
			ClientID:  "stereodpl-" + *camera,
			Topic:     "stereodpl/result",
			QoS:       0,
		})
		if err := mqttPub.Connect(); err != nil {
			return fmt.Errorf("run: connecting to MQTT broker: %w", err)
		}
		defer mqttPub.Close()
	}

	if err := eng.Start(config.StartMode{
		StereoMatching:  *matching,
		FrameDecoder:    !*matching,
		DisparityFilter: *filtering,
	}); err != nil {
		return err
	}
	defer eng.Terminate()

	submitted := 0
	for {
		var in frame.ImageFrame
		status, err := src.next(&in)
		if err != nil {
			return fmt.Errorf("run: reading replay frame: %w", err)
		}
		if status == replayNoImage {
			break
		}
		if err := eng.Submit(&in); err != nil {
			log.Warn("submit failed", "frame", in.FrameNumber, "err", err)
			continue
		}
		submitted++
	}

	var out frame.ResultFrame
	out.Image = &frame.ImageFrame{}
	received := 0
	deadline := time.Now().Add(5 * time.Second)
	for received < submitted && time.Now().Before(deadline) {
		if err := eng.FetchResult(&out); err != nil {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		received++
		fmt.Printf("frame %d: tact=%s error=%d\n", out.Image.FrameNumber, out.Result.TactTime, out.Result.ErrorCode)
		if mqttPub != nil {
			if err := mqttPub.Publish(&out); err != nil {
				log.Warn("mqtt publish failed", "frame", out.Image.FrameNumber, "err", err)
			}
		}
	}

	fmt.Printf("submitted=%d received=%d dropped=%d\n", submitted, received, eng.FramesDropped())
	return nil
}

// --- params ---

func runParams(args []string) error {
	fs := flag.NewFlagSet("params", flag.ContinueOnError)
	camera := fs.String("camera", "Generic", "camera model tag")
	cfgDir := fs.String("config-dir", ".", "parameter-file directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("params: expected exactly one stage-index argument")
	}
	var idx int
	if _, err := fmt.Sscanf(fs.Arg(0), "%d", &idx); err != nil {
		return fmt.Errorf("params: stage index must be an integer: %w", err)
	}

	eng, err := dpl.New(config.EngineConfig{
		MaxImageWidth:  1,
		MaxImageHeight: 1,
		MaxBufferCount: 1,
		EnabledStages:  config.StageStereoMatching | config.StageDisparityFilter,
		ConfigFileDir:  *cfgDir,
		CameraModel:    *camera,
	}, nil)
	if err != nil {
		return err
	}

	name, err := eng.GetStageName(idx)
	if err != nil {
		return err
	}
	ps, err := eng.GetStageParameters(idx)
	if err != nil {
		return err
	}
	fmt.Printf("stage %d: %s\n", idx, name)
	for _, e := range ps.Entries {
		fmt.Printf("  [%s] %s = %s  # %s\n", e.Category, e.Name, e.Value, e.Description)
	}
	return nil
}
