// Vigia - Video Quality-of-Experience Telemetry SDK for Go
// Copyright 2026 Vigia Labs
// SPDX-License-Identifier: Apache-2.0
// https://github.com/vigialabs/vigia-go

package session

import (
	"strconv"
	"testing"
)

func TestFactoryKeysCountUp(t *testing.T) {
	env := newTestEnv()
	for want := 0; want < 3; want++ {
		if got := env.factory.MakeVideoSession(contentMetadata()); got != want {
			t.Errorf("expected key %d, got %d", want, got)
		}
	}
	if got := env.factory.Count(); got != 3 {
		t.Errorf("expected 3 live sessions, got %d", got)
	}
}

func TestFactoryClonesCallerMetadata(t *testing.T) {
	env := newTestEnv()
	md := contentMetadata()
	key := env.factory.MakeVideoSession(md)

	md.AssetName = "mutated"
	md.Custom["genre"] = "mutated"

	sess := env.factory.Get(key)
	if sess.metadata.AssetName != "Big Buck Bunny" {
		t.Errorf("expected session metadata detached from caller, got %q", sess.metadata.AssetName)
	}
	if sess.metadata.Custom["genre"] != "animation" {
		t.Errorf("expected custom tags detached from caller, got %q", sess.metadata.Custom["genre"])
	}
}

func TestFactoryAdSessionLinksParent(t *testing.T) {
	env := newTestEnv()
	parentKey := env.factory.MakeVideoSession(contentMetadata())
	parent := env.factory.Get(parentKey)

	adKey := env.factory.MakeAdSession(parentKey, &ContentMetadata{AssetName: "preroll-30s"})
	if adKey == NoSessionKey {
		t.Fatal("expected ad session to be created")
	}

	ad := env.factory.Get(adKey)
	if ad.Type() != SessionTypeAd {
		t.Errorf("expected ad session type, got %v", ad.Type())
	}
	wantTag := strconv.Itoa(int(parent.InternalID()))
	if got := ad.metadata.Custom[adParentTag]; got != wantTag {
		t.Errorf("expected parent tag %q, got %q", wantTag, got)
	}
	if ad.metadata.ApplicationName != "VigiaDemo" {
		t.Errorf("expected application name inherited, got %q", ad.metadata.ApplicationName)
	}
	if ad.metadata.ViewerID != "viewer-1" {
		t.Errorf("expected viewer id inherited, got %q", ad.metadata.ViewerID)
	}
}

func TestFactoryAdSessionKeepsOwnIdentity(t *testing.T) {
	env := newTestEnv()
	parentKey := env.factory.MakeVideoSession(contentMetadata())

	adKey := env.factory.MakeAdSession(parentKey, &ContentMetadata{
		AssetName:       "preroll-30s",
		ApplicationName: "AdServer",
		ViewerID:        "ad-viewer",
	})
	ad := env.factory.Get(adKey)
	if ad.metadata.ApplicationName != "AdServer" || ad.metadata.ViewerID != "ad-viewer" {
		t.Errorf("expected ad metadata to win over inherited values, got %+v", ad.metadata)
	}
}

func TestFactoryAdSessionRequiresParent(t *testing.T) {
	env := newTestEnv()
	if got := env.factory.MakeAdSession(99, &ContentMetadata{AssetName: "orphan"}); got != NoSessionKey {
		t.Errorf("expected NoSessionKey for missing parent, got %d", got)
	}
}

func TestFactoryGetVideoRejectsGlobal(t *testing.T) {
	env := newTestEnv()
	globalKey := env.factory.MakeGlobalSession()
	videoKey := env.factory.MakeVideoSession(contentMetadata())

	if env.factory.GetVideo(globalKey) != nil {
		t.Error("expected global session hidden from playback lookups")
	}
	if env.factory.GetVideo(videoKey) == nil {
		t.Error("expected video session visible to playback lookups")
	}
	if env.factory.Get(globalKey) == nil {
		t.Error("expected global session visible to plain lookups")
	}
}

func TestFactoryCleanupRemoves(t *testing.T) {
	env := newTestEnv()
	key := env.factory.MakeVideoSession(contentMetadata())

	env.factory.Cleanup(key)
	if env.factory.Get(key) != nil {
		t.Error("expected session removed after cleanup")
	}
	if got := env.factory.Count(); got != 0 {
		t.Errorf("expected 0 live sessions, got %d", got)
	}

	// Unknown keys are tolerated.
	env.factory.Cleanup(key)
	env.factory.Cleanup(12345)
}

func TestFactoryCleanupAllResetsKeys(t *testing.T) {
	env := newTestEnv()
	env.factory.MakeVideoSession(contentMetadata())
	env.factory.MakeVideoSession(contentMetadata())

	env.factory.CleanupAll()
	if got := env.factory.Count(); got != 0 {
		t.Errorf("expected registry emptied, got %d", got)
	}
	if got := env.factory.MakeVideoSession(contentMetadata()); got != 0 {
		t.Errorf("expected keys to restart at 0, got %d", got)
	}
}

func TestFactoryWireIDsDiffer(t *testing.T) {
	env := newTestEnv()
	a := env.factory.Get(env.factory.MakeVideoSession(contentMetadata()))
	b := env.factory.Get(env.factory.MakeVideoSession(contentMetadata()))
	if a.InternalID() == b.InternalID() {
		t.Error("expected distinct wire ids for distinct sessions")
	}
}
