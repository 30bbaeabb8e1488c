// proctor-probe is a headless candidate client for smoke-testing a
// deployment: it joins a room, answers the interviewer's offer with a
// data-channel-only peer, trickles ICE, and feeds synthetic detection
// events through the batcher.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Ravichandra89/TuteDude-Assessment/internal/config"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/rtc"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/signalclient"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/signaling"
	"github.com/Ravichandra89/TuteDude-Assessment/pkg/batcher"
	"github.com/Ravichandra89/TuteDude-Assessment/pkg/logger"
)

var syntheticEvents = []batcher.Event{
	{Type: "FOCUS_LOST", Message: "candidate looked away"},
	{Type: "NO_FACE", Message: "no face visible"},
	{Type: "MULTIPLE_FACES", Message: "second face in frame"},
	{Type: "PHONE_DETECTED", Message: "phone visible in frame"},
}

func main() {
	room := flag.String("room", "", "room id to join (required)")
	sessionID := flag.String("session", "", "session id for detection events (required)")
	candidateID := flag.String("candidate", "", "candidate id tag for events")
	apiURL := flag.String("api", "http://localhost:4000", "proctor api base url")
	stun := flag.String("stun", "stun:stun.l.google.com:19302", "comma-separated STUN urls")
	eventEvery := flag.Duration("event-every", 7*time.Second, "synthetic event interval")
	flag.Parse()

	cfg := config.Load()
	log := logger.New("proctor-probe", logger.ParseLevel(cfg.LogLevel))

	if *room == "" || *sessionID == "" {
		fmt.Fprintln(os.Stderr, "usage: proctor-probe -room <id> -session <id> [-candidate <id>]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sender, err := batcher.NewHTTPSender(*apiURL, nil)
	if err != nil {
		log.Error("bad api url", "error", err)
		os.Exit(1)
	}
	events := batcher.New(sender, *sessionID, *candidateID, batcher.Options{
		BatchSize:  cfg.BatchSize,
		Interval:   cfg.BatchInterval,
		FlushDelay: cfg.BatchFlushDelay,
	}, log)
	go events.Run(ctx)

	peer, err := rtc.NewPeer(strings.Split(*stun, ","), log)
	if err != nil {
		log.Error("create peer failed", "error", err)
		os.Exit(1)
	}
	defer peer.Close()

	// remoteID is learned from the incoming offer; ICE gathered before
	// that is held back until a target exists.
	var (
		mu       sync.Mutex
		remoteID string
		pending  []json.RawMessage
	)

	var client *signalclient.Client
	client = signalclient.New(cfg.SignalingURL, log, signalclient.Events{
		OnReady: func(payload signaling.ReadyPayload) {
			log.Info("room ready", "room_id", payload.RoomID, "participants", len(payload.Participants))
		},
		OnOffer: func(from string, description json.RawMessage) {
			answer, err := peer.Answer(description)
			if err != nil {
				log.Error("answer failed", "error", err)
				return
			}
			mu.Lock()
			remoteID = from
			held := pending
			pending = nil
			mu.Unlock()
			if err := client.SendAnswer(from, answer); err != nil {
				log.Error("send answer failed", "error", err)
				return
			}
			for _, c := range held {
				_ = client.SendICECandidate(from, c)
			}
		},
		OnICECandidate: func(from string, candidate json.RawMessage) {
			if err := peer.AddICECandidate(candidate); err != nil {
				log.Warn("add ice candidate failed", "error", err)
			}
		},
		OnParticipantLeft: func(id string) {
			log.Info("peer left", "id", id)
		},
	})

	peer.OnICECandidate(func(candidate json.RawMessage) {
		mu.Lock()
		target := remoteID
		if target == "" {
			pending = append(pending, candidate)
			mu.Unlock()
			return
		}
		mu.Unlock()
		if err := client.SendICECandidate(target, candidate); err != nil {
			log.Warn("send ice candidate failed", "error", err)
		}
	})

	if err := client.Connect(); err != nil {
		log.Error("signaling connect failed", "error", err)
		os.Exit(1)
	}
	defer client.Close()
	if err := client.Join(*room, signaling.RoleCandidate); err != nil {
		log.Error("join failed", "error", err)
		os.Exit(1)
	}

	ticker := time.NewTicker(*eventEvery)
	defer ticker.Stop()
	i := 0
	for {
		select {
		case <-ctx.Done():
			_ = client.Leave()
			if err := events.Close(); err != nil {
				log.Warn("final flush failed", "pending", events.Pending(), "error", err)
			}
			log.Info("probe stopped")
			return
		case <-client.Done():
			log.Warn("signaling connection lost")
			_ = events.Close()
			return
		case <-ticker.C:
			events.Push(syntheticEvents[i%len(syntheticEvents)])
			i++
		}
	}
}
