package bot

import "context"

// Hypothesis is one recognizer result. Non-final hypotheses are partials that
// may be superseded; a final hypothesis ends the listening phase.
type Hypothesis struct {
	Text  string
	Final bool
}

// Speaker is the text-to-speech collaborator. Speak returns when synthesis
// completes, errors, or ctx is done.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Stop()
	Shutdown()
}

// Recognizer is the speech-recognition collaborator. Listen starts a
// recognition session and streams hypotheses until a final result, an engine
// error (channel close), or ctx is done.
type Recognizer interface {
	Listen(ctx context.Context) (<-chan Hypothesis, error)
	Cancel()
	Destroy()
}

// AudioFocus models the shared audio device. Request is best-effort: a
// refused focus grant degrades the session, it does not abort it.
type AudioFocus interface {
	Request() bool
	Release()
}
