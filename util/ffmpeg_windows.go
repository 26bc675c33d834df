package util

import (
    "errors"
    "context"
)

var UnsupportedError = errors.New("Unsupported")

/* passing the audio pipe as an extra file descriptor does not work on windows */
func EncodeMp3(mp3out string, quit context.Context, sampleRate int, channels int, audioOut <-chan []float32) error {
    return UnsupportedError
}
