// Copyright © 2016 Tobias Wellnitz, DH1TW <Tobias.Wellnitz@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"fmt"
	"os"
	"text/template"

	"github.com/gordonklaus/portaudio"
	"github.com/spf13/cobra"

	"github.com/dh1tw/streamMixer/audio/sinks/malgoWriter"
)

// enumerateCmd represents the enumerate command
var enumerateCmd = &cobra.Command{
	Use:   "enumerate",
	Short: "List all available audio output devices and supported backends",
	Long: `List all available audio output devices and supported backends.

With --backend portaudio (default) the Host APIs and their devices
are listed. With --backend malgo the playback devices of the selected
miniaudio backend (--hostapi) are listed.`,
	Run: func(cmd *cobra.Command, args []string) {
		backend, _ := cmd.Flags().GetString("backend")
		hostAPI, _ := cmd.Flags().GetString("hostapi")
		var err error
		switch backend {
		case "portaudio":
			err = enumeratePortaudio()
		case "malgo":
			err = enumerateMalgo(hostAPI)
		default:
			err = fmt.Errorf("unknown backend %q", backend)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	RootCmd.AddCommand(enumerateCmd)
	enumerateCmd.Flags().StringP("backend", "b", "portaudio", "audio backend (portaudio, malgo)")
	enumerateCmd.Flags().String("hostapi", "default", "malgo backend to enumerate")
}

var tmpl = template.Must(template.New("").Parse(
	`
Available audio devices and supported Host APIs:

	Detected {{. | len}} host API(s): {{range .}}
	
	Name:                   {{.Name}}
	{{if .DefaultOutputDevice}}Default output device:  {{.DefaultOutputDevice.Name}}{{end}}
	Devices: {{range .Devices}}{{if .MaxOutputChannels}}
		Name:                      {{.Name}}
		MaxOutputChannels:         {{.MaxOutputChannels}}
		DefaultLowOutputLatency:   {{.DefaultLowOutputLatency}}
		DefaultHighOutputLatency:  {{.DefaultHighOutputLatency}}
		DefaultSampleRate:         {{.DefaultSampleRate}}
	{{end}}{{end}}
{{end}}`,
))

var malgoTmpl = template.Must(template.New("").Parse(
	`
Available playback devices:
{{range .}}
	Name:       {{.Name}}{{if .IsDefault}} (default){{end}}
	ID:         {{.ID}}
{{end}}`,
))

// enumeratePortaudio lists all output devices known to portaudio
func enumeratePortaudio() error {
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	defer portaudio.Terminate()

	hs, err := portaudio.HostApis()
	if err != nil {
		return err
	}
	return tmpl.Execute(os.Stdout, hs)
}

// enumerateMalgo lists the playback devices of a miniaudio backend
func enumerateMalgo(backend string) error {
	devices, err := malgoWriter.EnumerateDevices(backend)
	if err != nil {
		return err
	}
	return malgoTmpl.Execute(os.Stdout, devices)
}
