package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"cadenced/internal/config"
	"cadenced/internal/enroll"
	"cadenced/internal/keystroke"
	"cadenced/internal/store"
	"cadenced/internal/verify"
)

func cmdEnroll(args []string) error {
	fs := flag.NewFlagSet("enroll", flag.ExitOnError)
	identity := fs.String("identity", "", "identity to enroll")
	context := fs.String("context", "default", "context the profile belongs to")
	modality := fs.String("modality", "keystroke", "keystroke or voice")
	index := fs.Int("index", 0, "sample index within the enrollment session")
	samplePath := fs.String("sample", "", "path to the captured sample file")
	fs.Parse(args)

	if *identity == "" || *samplePath == "" {
		return errors.New("enroll requires -identity and -sample")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var progress enroll.Progress
	switch *modality {
	case "keystroke":
		events, err := readKeystrokeCapture(*samplePath)
		if err != nil {
			return err
		}
		fv, err := keystroke.Extract(keystroke.FilterBiometric(events), cfg.Keystroke.VectorLength)
		if err != nil {
			return err
		}
		progress, err = a.controller.AddKeystrokeSample(*identity, *context, *index, fv.Vector)
		if err != nil {
			return err
		}
	case "voice":
		capture, err := readAudioCapture(*samplePath)
		if err != nil {
			return err
		}
		agg, err := a.extractVoice(capture)
		if err != nil {
			return err
		}
		progress, err = a.controller.AddVoiceSample(*identity, *context, *index, agg)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown modality %q", *modality)
	}

	if progress.State == enroll.StateTraining {
		fmt.Println("All samples collected, training...")
		if err := a.controller.Wait(); err != nil {
			return err
		}
		progress, _ = a.controller.Status(*identity, *context, enroll.ModalityKeystroke)
	}

	fmt.Printf("Session %s: %s (%d/%d samples)\n",
		progress.SessionID, progress.State, progress.Collected, progress.Required)
	return nil
}

func cmdVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	identity := fs.String("identity", "", "claimed identity")
	context := fs.String("context", "default", "context to verify against")
	modality := fs.String("modality", "keystroke", "keystroke or voice")
	samplePath := fs.String("sample", "", "path to the captured sample file")
	fs.Parse(args)

	if *identity == "" || *samplePath == "" {
		return errors.New("verify requires -identity and -sample")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var res verify.Result
	switch *modality {
	case "keystroke":
		events, err := readKeystrokeCapture(*samplePath)
		if err != nil {
			return err
		}
		res, err = a.engine.ExtractAndVerifyKeystroke(*identity, *context, events, cfg.Keystroke.VectorLength)
		if err != nil {
			return err
		}
	case "voice":
		capture, err := readAudioCapture(*samplePath)
		if err != nil {
			return err
		}
		agg, err := a.extractVoice(capture)
		if err != nil {
			return err
		}
		res, err = a.engine.VerifyVoice(*identity, *context, agg, cfg.Voice.SimilarityThreshold)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown modality %q", *modality)
	}

	if res.Authenticated {
		fmt.Printf("AUTHENTICATED  score=%.4f threshold=%.4f confidence=%.2f\n",
			res.Score, res.Threshold, res.Confidence)
		return nil
	}
	if res.Reason != "" {
		fmt.Printf("REJECTED  reason=%s\n", res.Reason)
	} else {
		fmt.Printf("REJECTED  score=%.4f threshold=%.4f confidence=%.2f\n",
			res.Score, res.Threshold, res.Confidence)
	}
	os.Exit(1)
	return nil
}

func cmdStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	identity := fs.String("identity", "", "identity to inspect")
	context := fs.String("context", "default", "context to inspect")
	fs.Parse(args)

	if *identity == "" {
		return errors.New("status requires -identity")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	kinds := map[enroll.Modality]store.RecordKind{
		enroll.ModalityKeystroke: store.KindKeystrokeProfile,
		enroll.ModalityVoice:     store.KindVoiceProfile,
	}
	for _, modality := range []enroll.Modality{enroll.ModalityKeystroke, enroll.ModalityVoice} {
		if p, ok := a.controller.Status(*identity, *context, modality); ok {
			fmt.Printf("%-9s session %s: %s (%d/%d samples)\n",
				modality, p.SessionID, p.State, p.Collected, p.Required)
			continue
		}
		// No live session: report whether a verified profile exists.
		enrolled := "not enrolled"
		if payload, err := a.store.Load(store.Key{
			Context:  *context,
			Identity: *identity,
			Kind:     kinds[modality],
		}); err == nil && payload != nil {
			enrolled = "enrolled"
		}
		fmt.Printf("%-9s %s\n", modality, enrolled)
	}
	return nil
}

func cmdWipe(args []string) error {
	fs := flag.NewFlagSet("wipe", flag.ExitOnError)
	identity := fs.String("identity", "", "identity to delete (empty: whole context)")
	context := fs.String("context", "", "context to delete (empty: everything)")
	yes := fs.Bool("yes", false, "skip confirmation")
	fs.Parse(args)

	var what string
	switch {
	case *identity != "" && *context != "":
		what = fmt.Sprintf("profiles for %q in context %q", *identity, *context)
	case *context != "":
		what = fmt.Sprintf("all profiles in context %q", *context)
	default:
		what = "ALL stored profiles"
	}

	if !*yes {
		fmt.Printf("Delete %s? [y/N] ", what)
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if answer := strings.TrimSpace(strings.ToLower(line)); answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	switch {
	case *identity != "" && *context != "":
		err = a.store.DeleteIdentity(*context, *identity)
	case *context != "":
		err = a.store.DeleteContext(*context)
	default:
		err = a.store.Wipe()
	}
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %s.\n", what)
	return nil
}

func cmdConfigInit(args []string) error {
	fs := flag.NewFlagSet("config-init", flag.ExitOnError)
	path := fs.String("path", config.ConfigPath(), "where to write the config file")
	fs.Parse(args)

	if err := config.WriteDefault(*path); err != nil {
		return err
	}
	fmt.Printf("Wrote default configuration to %s\n", *path)
	return nil
}
