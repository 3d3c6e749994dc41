package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/mod/semver"

	"casty.app/casty/casty"
	"casty.app/casty/devices"
	"casty.app/casty/internal/config"
	"casty.app/casty/internal/interactive"
	"casty.app/casty/mediadata"
	"casty.app/casty/routechooser"
	"casty.app/casty/utils"
)

const (
	sampleURL      = "http://distribution.bbb3d.renderfarming.net/video/mp4/bbb_sunflower_1080p_30fps_normal.mp4"
	sampleImageURL = "https://peach.blender.org/wp-content/uploads/bbb-splash.png?x11217"
	sampleType     = "videos/mp4"
	probeTimeout   = 15 * time.Second
)

var (
	//go:embed version.txt
	version    string
	targetPtr  = flag.String("t", "", "Cast device address (ip:port) or index from -l to connect on start.")
	listPtr    = flag.Bool("l", false, "List all available Chromecast devices.")
	urlArg     = flag.String("u", "", "HTTP URL of the media to cast instead of the sample video.")
	ctArg      = flag.String("ct", "", "Content type of the media. Probed from the server when -u is set and -ct is not.")
	titleArg   = flag.String("title", "", "Title shown on the receiver.")
	debugArg   = flag.String("debug", "", "Write debug logs to this file.")
	versionPtr = flag.Bool("version", false, "Print version.")

	ErrNoCombi = errors.New("can't combine -l with other flags")
)

type flagResults struct {
	target string
	exit   bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Encountered error(s): %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	exitCTX, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	flag.Parse()

	conf, err := config.GetAppConfig()
	if err != nil {
		return err
	}

	flagRes, err := processflags(conf)
	if err != nil {
		return err
	}

	if flagRes.exit {
		return nil
	}

	casty.Configure(conf.ReceiverID)

	logOutput, closeLog, err := openLog(conf)
	if err != nil {
		return err
	}
	defer closeLog()

	media, err := buildMedia(exitCTX, *urlArg, *ctArg, *titleArg)
	if err != nil {
		return err
	}

	c := casty.Create(exitCTX, casty.Options{LogOutput: logOutput}).WithMiniController()
	defer func() { _ = c.Close() }()

	scr, err := interactive.InitScreen(c.Player(), c, media, cancel)
	if err != nil {
		return err
	}

	c.SetOnConnectChangeListener(scr)
	c.SetOnMediaLoadedHandler(scr.ShowExpandedControls)
	c.SetOnCastSessionUpdatedListener(&lastDeviceSaver{conf: conf, log: c.Log()})
	c.SetUpMediaRouteButton(routechooser.New())
	c.AddMediaRouteMenuItem(scr)

	if flagRes.target != "" {
		go func() {
			dev := devices.Device{Name: flagRes.target, Addr: flagRes.target}
			if err := c.SelectRoute(dev); err != nil {
				scr.EmitMsg("Could not connect to " + flagRes.target)
				c.Log().Error().Str("Method", "run").Err(err).Msg("initial route")
			}
		}()
	}

	scrErr := make(chan error, 1)
	go scr.InterInit(exitCTX, scrErr)

	select {
	case e := <-scrErr:
		return e
	case <-exitCTX.Done():
	}

	return nil
}

func processflags(conf *config.Config) (*flagResults, error) {
	checkVerflag()

	res := &flagResults{}

	if *listPtr {
		if *targetPtr != "" || *urlArg != "" {
			return nil, ErrNoCombi
		}
		if err := listFlagFunction(conf.DiscoveryTimeout); err != nil {
			return nil, fmt.Errorf("checkflags error: %w", err)
		}
		res.exit = true
		return res, nil
	}

	if *ctArg != "" && *urlArg == "" {
		return nil, errors.New("-ct requires -u")
	}

	target, err := checkTflag(conf)
	if err != nil {
		return nil, fmt.Errorf("checkflags error: %w", err)
	}
	res.target = target

	return res, nil
}

// checkTflag resolves -t. A number picks from the discovered devices,
// anything else is used as an address. Without -t the last used device
// is reconnected.
func checkTflag(conf *config.Config) (string, error) {
	if *targetPtr == "" {
		return conf.LastDevice, nil
	}

	if n, err := strconv.Atoi(*targetPtr); err == nil {
		devs, err := devices.LoadChromecastDevices(conf.DiscoveryTimeout)
		if err != nil {
			return "", fmt.Errorf("checkTflag service loading error: %w", err)
		}

		dev, err := devices.DevicePicker(devs, n)
		if err != nil {
			return "", fmt.Errorf("checkTflag device picker error: %w", err)
		}
		return dev.Addr, nil
	}

	return strings.TrimSpace(*targetPtr), nil
}

func listFlagFunction(timeout time.Duration) error {
	devs, err := devices.LoadChromecastDevices(timeout)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	fmt.Println()

	boldStart := ""
	boldEnd := ""
	if runtime.GOOS == "linux" {
		boldStart = "\033[1m"
		boldEnd = "\033[0m"
	}

	for i := range devs {
		dev, err := devices.DevicePicker(devs, i+1)
		if err != nil {
			return err
		}
		fmt.Printf("%sDevice %v%s\n", boldStart, i+1, boldEnd)
		fmt.Printf("%s--------%s\n", boldStart, boldEnd)
		fmt.Printf("%sName:%s  %s\n", boldStart, boldEnd, dev.DisplayName())
		if dev.Model != "" {
			fmt.Printf("%sModel:%s %s\n", boldStart, boldEnd, dev.Model)
		}
		fmt.Printf("%sURL:%s   %s\n", boldStart, boldEnd, dev.Addr)
		fmt.Println()
	}

	return nil
}

func checkVerflag() {
	if *versionPtr {
		fmt.Printf("Casty Example Version: %s\n", versionString(version))
		os.Exit(0)
	}
}

// versionString normalizes the embedded version, "dev" when it is not a
// semantic version.
func versionString(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "dev"
	}
	return semver.Canonical(v)
}

func openLog(conf *config.Config) (io.Writer, func(), error) {
	path := *debugArg
	if path == "" {
		path = conf.LogPath
	}
	if path == "" {
		return nil, func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("debug log: %w", err)
	}

	return f, func() { _ = f.Close() }, nil
}

// buildMedia describes the media cast by the play control: the sample
// video, or rawURL when set.
func buildMedia(ctx context.Context, rawURL, contentType, title string) (mediadata.MediaData, error) {
	if rawURL == "" {
		b, err := mediadata.NewBuilder(sampleURL)
		if err != nil {
			return mediadata.MediaData{}, err
		}

		if title == "" {
			title = "Sample title"
		}

		return b.SetStreamType(mediadata.StreamTypeBuffered).
			SetContentType(sampleType).
			SetMediaType(mediadata.MediaTypeMovie).
			SetTitle(title).
			SetSubtitle("Sample subtitle").
			AddImageURL(sampleImageURL).
			Build()
	}

	b, err := mediadata.NewBuilder(rawURL)
	if err != nil {
		return mediadata.MediaData{}, err
	}

	if contentType == "" {
		probeCTX, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()

		contentType, err = utils.ProbeContentType(probeCTX, rawURL)
		if err != nil {
			return mediadata.MediaData{}, fmt.Errorf("content type: %w", err)
		}
	}

	if title == "" {
		title = rawURL
	}

	return b.SetStreamType(mediadata.StreamTypeBuffered).
		SetContentType(contentType).
		SetMediaType(mediaTypeFor(contentType)).
		SetTitle(title).
		Build()
}

func mediaTypeFor(contentType string) mediadata.MediaType {
	switch {
	case strings.HasPrefix(contentType, "audio/"):
		return mediadata.MediaTypeMusicTrack
	case strings.HasPrefix(contentType, "image/"):
		return mediadata.MediaTypePhoto
	case strings.HasPrefix(contentType, "video/"):
		return mediadata.MediaTypeMovie
	}
	return mediadata.MediaTypeGeneric
}
