package announce

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"

	"klinik/antrian/internal/logging"
)

// Outcome tags how an utterance ended. Only Failed is a real error;
// Interrupted means the audio layer was pre-empted and the job counts as done.
type Outcome int

const (
	Completed Outcome = iota
	Interrupted
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Interrupted:
		return "interrupted"
	default:
		return "failed"
	}
}

type Utterance struct {
	Text   string
	Locale Locale
	Volume float64
}

// Speaker is the audio layer. Calls are never made concurrently.
type Speaker interface {
	Chime(ctx context.Context, volume float64) (Outcome, error)
	Speak(ctx context.Context, utterance Utterance) (Outcome, error)
}

// NewSpeaker returns a CommandSpeaker when a speak command is configured and
// a LogSpeaker otherwise.
func NewSpeaker(speakCommand, chimeCommand string) Speaker {
	if strings.TrimSpace(speakCommand) == "" {
		return LogSpeaker{}
	}
	return CommandSpeaker{
		SpeakCommand: strings.Fields(speakCommand),
		ChimeCommand: strings.Fields(chimeCommand),
	}
}

// LogSpeaker only writes what would be said. Used on headless displays.
type LogSpeaker struct{}

func (LogSpeaker) Chime(ctx context.Context, volume float64) (Outcome, error) {
	logging.FromContext(ctx).Info().Float64("volume", volume).Msg("chime")
	return Completed, nil
}

func (LogSpeaker) Speak(ctx context.Context, utterance Utterance) (Outcome, error) {
	logging.FromContext(ctx).Info().
		Str("locale", string(utterance.Locale)).
		Float64("volume", utterance.Volume).
		Msg(utterance.Text)
	return Completed, nil
}

// CommandSpeaker runs external programs, for example
//
//	espeak-ng -v {locale} -a {volume} {text}
//
// {text}, {locale} and {volume} are substituted per argument; when no
// argument mentions {text} the text is appended. Volume is rendered 0-100.
type CommandSpeaker struct {
	SpeakCommand []string
	ChimeCommand []string
}

func (s CommandSpeaker) Chime(ctx context.Context, volume float64) (Outcome, error) {
	if len(s.ChimeCommand) == 0 {
		return Completed, nil
	}
	return run(ctx, expand(s.ChimeCommand, Utterance{Volume: volume}, false))
}

func (s CommandSpeaker) Speak(ctx context.Context, utterance Utterance) (Outcome, error) {
	if len(s.SpeakCommand) == 0 {
		return Failed, errors.New("speak command not configured")
	}
	return run(ctx, expand(s.SpeakCommand, utterance, true))
}

func expand(command []string, utterance Utterance, appendText bool) []string {
	replacer := strings.NewReplacer(
		"{text}", utterance.Text,
		"{locale}", string(utterance.Locale),
		"{volume}", strconv.Itoa(int(utterance.Volume*100+0.5)),
	)
	args := make([]string, 0, len(command)+1)
	hasText := false
	for _, arg := range command {
		if strings.Contains(arg, "{text}") {
			hasText = true
		}
		args = append(args, replacer.Replace(arg))
	}
	if appendText && !hasText {
		args = append(args, utterance.Text)
	}
	return args
}

func run(ctx context.Context, args []string) (Outcome, error) {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	err := cmd.Run()
	if err == nil {
		return Completed, nil
	}
	if ctx.Err() != nil {
		return Interrupted, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == -1 {
		// killed by a signal, typically another player taking the device
		return Interrupted, err
	}
	return Failed, err
}
