// Copyright 2024 The mefwriter Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command mefdemo synthesizes a sine wave and streams it through a channel
// writer into a freshly created session directory, exercising init,
// write, flush and close end to end. It is a demo driver, excluded from
// the core per the writer's scope.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/msel-source/mefwriter/channel"
	"github.com/msel-source/mefwriter/mef3"
	"github.com/msel-source/mefwriter/session"
)

func main() {
	var (
		outDir            = flag.String("out", ".", "parent directory for the generated <session>.mefd")
		sessionName       = flag.String("session", "demo_session", "session name")
		channelName       = flag.String("channel", "eeg1", "channel name")
		samplingFrequency = flag.Float64("fs", 1000, "sampling frequency in Hz")
		seconds           = flag.Float64("secs", 10, "seconds of sine wave to synthesize")
		segmentSeconds    = flag.Float64("segment-secs", 0, "segment duration in seconds (0 = no rollover)")
	)
	flag.Parse()

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "cmd", "mefdemo")

	if err := run(logger, *outDir, *sessionName, *channelName, *samplingFrequency, *seconds, *segmentSeconds); err != nil {
		level.Error(logger).Log("msg", "demo run failed", "err", err)
		os.Exit(1)
	}
}

func run(logger log.Logger, outDir, sessionName, channelName string, fs, secs, segmentSecs float64) error {
	sess, err := session.Create(outDir, sessionName, mef3.TimeOffsetIgnore, 0)
	if err != nil {
		return err
	}
	sess.SetLogger(logger)
	defer sess.Close()

	cfg := channel.Config{
		SessionName:           sessionName,
		ChannelName:           channelName,
		SessionDir:            sess.Dir,
		SamplingFrequency:     fs,
		SecsPerBlock:          1.0,
		BlockIntervalUs:       1_000_000,
		UnitsConversionFactor: 1.0,
		SegmentDurationUs:     int64(segmentSecs * 1e6),
		LevelUUID:             sess.LevelUUID,
		Offsets:               sess.Offsets,
		Logger:                logger,
	}

	state, err := channel.Init(cfg)
	if err != nil {
		return err
	}
	if err := sess.RegisterChannel(channelName + ".timd"); err != nil {
		return err
	}

	n := int(secs * fs)
	times := make([]int64, n)
	samples := make([]int32, n)
	startUs := int64(946684800000000)
	for i := 0; i < n; i++ {
		times[i] = startUs + int64(float64(i)/fs*1e6)
		samples[i] = int32(math.Round(math.Sin(2*math.Pi*10*float64(i)/fs) * 20000))
	}

	if err := state.WriteChannel(times, samples); err != nil {
		return err
	}
	if err := state.CloseChannel(); err != nil {
		return err
	}

	level.Info(logger).Log(
		"msg", "wrote channel",
		"samples", state.Section2().NumberOfSamples,
		"blocks", state.Section2().NumberOfBlocks,
		"segments", state.SegmentNumber()+1,
	)
	fmt.Fprintf(os.Stdout, "wrote %s/%s.timd\n", sess.Dir, channelName)
	return nil
}
