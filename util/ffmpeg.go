//go:build !windows

package util

import (
    "os/exec"
    "os"
    "io"
    "log"
    "fmt"
    "time"
    "bytes"
    "encoding/binary"
    "context"
    "strconv"
)

func FindFfmpegBinary() (string, error) {
    return exec.LookPath("ffmpeg")
}

func niceSize(path string) string {
    info, err := os.Stat(path)
    if err != nil {
        return ""
    }

    size := float64(info.Size())
    suffixes := []string{"b", "kb", "mb", "gb"}
    suffix := 0

    for size > 1024 && suffix < len(suffixes) - 1 {
        size /= 1024
        suffix += 1
    }

    return fmt.Sprintf("%.2f%v", size, suffixes[suffix])
}

func waitForProcess(process *os.Process, timeout int){
    done := make(chan struct{})
    go func(){
        process.Wait()
        close(done)
    }()

    select {
        case <-done:
        case <-time.After(time.Second * time.Duration(timeout)):
            /* didn't exit on its own */
            log.Printf("Killing pid %v", process.Pid)
            process.Kill()
            <-done
    }
}

func drain(name string, reader io.ReadCloser){
    buffer := make([]byte, 4096)
    for {
        _, err := reader.Read(buffer)
        if err != nil {
            if err != io.EOF {
                log.Printf("Could not read ffmpeg %v: %v", name, err)
            }
            return
        }
    }
}

/* Encode interleaved float32 samples read from audioOut into an mp3. Returns
 * once audioOut is closed and ffmpeg has finished, or when quit is cancelled.
 */
func EncodeMp3(mp3out string, quit context.Context, sampleRate int, channels int, audioOut <-chan []float32) error {
    ffmpegPath, err := FindFfmpegBinary()
    if err != nil {
        return fmt.Errorf("Could not find ffmpeg: %w", err)
    }

    audioReader, audioWriter, err := os.Pipe()
    if err != nil {
        return err
    }

    log.Printf("Launching ffmpeg")
    ffmpeg := exec.Command(ffmpegPath,
        "-f", "f32le", // uncompressed pcm in float32
        "-ar", strconv.Itoa(sampleRate),
        "-ac", strconv.Itoa(channels),
        "-i", "pipe:3", // audio is passed as fd 3
        "-acodec", "mp3",
        "-y", // overwrite output if the file already exists
        mp3out)

    ffmpeg.ExtraFiles = []*os.File{audioReader}

    stdout, err := ffmpeg.StdoutPipe()
    if err != nil {
        return fmt.Errorf("Could not get ffmpeg stdout: %w", err)
    }

    stderr, err := ffmpeg.StderrPipe()
    if err != nil {
        return fmt.Errorf("Could not get ffmpeg stderr: %w", err)
    }

    err = ffmpeg.Start()
    if err != nil {
        return fmt.Errorf("Could not start ffmpeg: %w", err)
    }
    /* the child has its own copy */
    audioReader.Close()

    go drain("stdout", stdout)
    go drain("stderr", stderr)

    log.Printf("Recording to %v", mp3out)
    startTime := time.Now()

    var audioBuffer bytes.Buffer
    func(){
        defer audioWriter.Close()
        for {
            select {
                case <-quit.Done():
                    return
                case audio, ok := <-audioOut:
                    if !ok {
                        return
                    }
                    audioBuffer.Reset()
                    binary.Write(&audioBuffer, binary.LittleEndian, audio)
                    _, err := audioWriter.Write(audioBuffer.Bytes())
                    if err != nil {
                        log.Printf("Could not write to ffmpeg: %v", err)
                        return
                    }
            }
        }
    }()

    if quit.Err() != nil {
        ffmpeg.Process.Signal(os.Interrupt)
    }
    waitForProcess(ffmpeg.Process, 10)

    log.Printf("Recording has ended. Saved '%v' in %v size %v", mp3out, time.Since(startTime), niceSize(mp3out))

    return nil
}
