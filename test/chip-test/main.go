package main

/* Plays the demo of every chip twice and checks that each is audible and
 * renders the same both times.
 */

import (
    "context"
    "crypto/sha256"
    "encoding/binary"
    "fmt"
    "hash"
    "log"
    "os"

    "github.com/kazzmir/chipsound/lib/host"
    "github.com/kazzmir/chipsound/lib/script"
    test_utils "github.com/kazzmir/chipsound/test/chip-test/utils"
)

type result struct {
    Hash []byte
    Samples int
    Loud int
}

func runDemo(chip string) (result, error) {
    instance, err := host.MakeInstance(chip, host.DefaultOptions())
    if err != nil {
        return result{}, err
    }

    var out result
    var digest hash.Hash = sha256.New()
    var bytes [4]byte
    err = script.MakeRunner(instance).RunDemo(context.Background(), func(left int16, right int16) error {
        binary.LittleEndian.PutUint16(bytes[0:], uint16(left))
        binary.LittleEndian.PutUint16(bytes[2:], uint16(right))
        digest.Write(bytes[:])
        out.Samples += 1
        if left > 256 || left < -256 || right > 256 || right < -256 {
            out.Loud += 1
        }
        return nil
    })
    out.Hash = digest.Sum(nil)
    return out, err
}

/* returns whether the chip passed and a description of the result */
func check(chip string) (bool, string, error) {
    first, err := runDemo(chip)
    if err != nil {
        return false, "", err
    }
    second, err := runDemo(chip)
    if err != nil {
        return false, "", err
    }

    if string(first.Hash) != string(second.Hash) {
        return false, "two runs of the demo differ", nil
    }

    if first.Loud < first.Samples / 10 {
        return false, fmt.Sprintf("only %v of %v samples are audible", first.Loud, first.Samples), nil
    }

    return true, fmt.Sprintf("%v samples hash %x", first.Samples, first.Hash[:8]), nil
}

func main(){
    log.SetFlags(log.Lshortfile | log.Lmicroseconds)

    failed := 0
    for _, chip := range host.ChipNames() {
        ok, detail, err := check(chip)
        if err != nil {
            detail = err.Error()
        }
        if !ok {
            failed += 1
        }
        log.Print(test_utils.Result(chip, ok, detail))
    }

    if failed > 0 {
        fmt.Printf("%v of %v chips failed\n", failed, len(host.ChipNames()))
        os.Exit(1)
    }
}
