// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

// Package vigia is a video quality-of-experience telemetry SDK. An
// application embeds a Client, creates a session per playback, and binds a
// PlayerTracker to its video player; the SDK batches state changes, errors
// and quality metrics into periodic heartbeats shipped to a collection
// gateway.
//
// Basic usage:
//
//	client, err := vigia.NewClient(vigia.Options{CustomerKey: "MYKEY"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Release()
//
//	key, _ := client.CreateSession(&vigia.ContentMetadata{
//	    AssetName: "Big Buck Bunny",
//	    ViewerID:  "viewer-1",
//	})
//
//	tracker := vigia.NewPlayerTracker()
//	client.AttachPlayer(key, tracker)
//	tracker.SetPlayerState(vigia.StatePlaying)
//	// ... play ...
//	client.CleanupSession(key)
//
// Once a player is attached, the integration reports through the tracker
// and the SDK takes care of sequencing, batching and delivery. All Client
// and PlayerTracker methods are safe for concurrent use.
package vigia
