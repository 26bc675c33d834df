package common

import (
    "os"
    "log"
    "encoding/json"
    "path/filepath"

    "github.com/kazzmir/chipsound/lib/host"
)

const CurrentVersion = 1

type ConfigData struct {
    Version int `json:"version,omitempty"`
    SampleRate int `json:"sample-rate,omitempty"`
    /* blip buffer length in milliseconds */
    BufferLength int `json:"buffer-length,omitempty"`
    BassFrequency int `json:"bass-frequency,omitempty"`
    Treble float64 `json:"treble,omitempty"`
    Volume float64 `json:"volume,omitempty"`
    /* clock overrides by chip name */
    Clocks map[string]int `json:"clocks,omitempty"`
}

/* make the directory where the config file lives, which is ~/.config/chipsound on linux */
func GetOrCreateConfigDir() (string, error) {
    configDir, err := os.UserConfigDir()
    if err != nil {
        return "", err
    }
    configPath := filepath.Join(configDir, "chipsound")
    err = os.MkdirAll(configPath, 0755)
    if err != nil {
        return "", err
    }

    return configPath, nil
}

func DefaultConfigData() ConfigData {
    options := host.DefaultOptions()
    return ConfigData{
        Version: CurrentVersion,
        SampleRate: options.SampleRate,
        BufferLength: options.BufferLength,
        BassFrequency: options.BassFrequency,
        Treble: options.Treble,
        Volume: options.Volume,
    }
}

func LoadConfigFile(path string) (ConfigData, error) {
    file, err := os.Open(path)
    if err != nil {
        return DefaultConfigData(), err
    }
    defer file.Close()

    /* fields missing from the file keep their defaults */
    data := DefaultConfigData()
    decoder := json.NewDecoder(file)
    err = decoder.Decode(&data)
    if err != nil {
        log.Printf("Could not load config data: %v", err)
        return DefaultConfigData(), err
    }

    if data.Version != CurrentVersion {
        return DefaultConfigData(), nil
    }

    return data, nil
}

func LoadConfigData() (ConfigData, error) {
    configPath, err := GetOrCreateConfigDir()
    if err != nil {
        return DefaultConfigData(), err
    }
    return LoadConfigFile(filepath.Join(configPath, "config.json"))
}

func SaveConfigFile(path string, data ConfigData) error {
    file, err := os.Create(path)
    if err != nil {
        return err
    }
    defer file.Close()

    encoder := json.NewEncoder(file)
    encoder.SetIndent("", "  ")
    return encoder.Encode(data)
}

/* create the config.json file in the config dir */
func SaveConfigData(data ConfigData) error {
    configPath, err := GetOrCreateConfigDir()
    if err != nil {
        return err
    }
    return SaveConfigFile(filepath.Join(configPath, "config.json"), data)
}

/* the renderer options for a chip */
func (data ConfigData) Options(chip string) host.Options {
    options := host.DefaultOptions()
    if data.SampleRate > 0 {
        options.SampleRate = data.SampleRate
    }
    options.BufferLength = data.BufferLength
    options.BassFrequency = data.BassFrequency
    options.Treble = data.Treble
    if data.Volume > 0 {
        options.Volume = data.Volume
    }
    options.Clock = data.Clocks[chip]
    return options
}
