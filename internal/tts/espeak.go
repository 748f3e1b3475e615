package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

int
espeak_say(const char *text, const char *lang, int rate)
{
	if (!text)
	{ return -1; }

	espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0);

	if (rate > 0)
	{ espeak_SetParameter(espeakRATE, rate, 0); }

	espeak_VOICE specs = { .languages = lang };
	espeak_SetVoiceByProperties(&specs);

	espeak_Synth(text, 500, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Engine speaks through espeak-ng. Each call is synchronous playback; the
// announcer serializes calls on its worker goroutine.
type Engine struct {
	Voice string // espeak language code, e.g. "en"
	Rate  int    // words per minute, 0 keeps the espeak default
}

func (e Engine) Speak(text string) error {
	if text == "" {
		return nil
	}

	voice := e.Voice
	if voice == "" {
		voice = "en"
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	cvoice := C.CString(voice)
	defer C.free(unsafe.Pointer(cvoice))

	rc := C.espeak_say(ctext, cvoice, C.int(e.Rate))
	if rc != 0 {
		return fmt.Errorf("espeak_say failed: %d", int(rc))
	}
	return nil
}
