// Command stego hides files in audio and extracts them again without the HTTP server.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"steganography-backend/audio"
	"steganography-backend/models"
	"steganography-backend/stego"
	"steganography-backend/storage"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const usage = `usage:
  stego encode   -in cover.mp3 -secret file -out stego.wav -key K [-lsb 2] [-enc] [-random]
  stego decode   -in stego.wav -key K [-random] [-out dir] [-name file]
  stego capacity -in cover.mp3 [-lsb 2] [-filename name]
`

var errUsage = errors.New("invalid usage")

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	if err := run(os.Args[1:], os.Stdout, log); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer, log *logrus.Logger) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "encode":
		return runEncode(args[1:], stdout, log)
	case "decode":
		return runDecode(args[1:], stdout, log)
	case "capacity":
		return runCapacity(args[1:], stdout, log)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

func runEncode(args []string, stdout io.Writer, log *logrus.Logger) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	in := fs.String("in", "", "cover audio (mp3, wav, flac)")
	secretPath := fs.String("secret", "", "file to hide")
	out := fs.String("out", "stego.wav", "output WAV file")
	key := fs.String("key", "", "stego key (1-25 characters)")
	lsb := fs.Int("lsb", 2, "LSB bits per sample (1-4)")
	enc := fs.Bool("enc", false, "encrypt the secret with the key")
	random := fs.Bool("random", false, "scatter bits from a key-derived start")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *in == "" || *secretPath == "" {
		return fmt.Errorf("%w: -in and -secret are required", errUsage)
	}
	setVerbose(log, *verbose)

	decoder := audio.NewAudioDecoder(log)
	cover, metadata, err := readAudio(decoder, *in)
	if err != nil {
		return err
	}
	secret, err := os.ReadFile(*secretPath)
	if err != nil {
		return err
	}

	result, err := stego.Encode(cover, secret, *key, stego.Options{
		LSBBits:        *lsb,
		UseEncryption:  *enc,
		UseRandomStart: *random,
		Filename:       filepath.Base(*secretPath),
	})
	if err != nil {
		return err
	}

	wavData, err := decoder.EncodePCMToWAV(result.Stego, metadata)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, wavData, 0o644); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"secret":   humanize.Bytes(uint64(len(secret))),
		"capacity": humanize.Bytes(uint64(result.Capacity)),
		"quality":  result.Fidelity.Quality,
	}).Debug("embedded")
	fmt.Fprintf(stdout, "wrote %s (PSNR %s, %s)\n", *out, audio.FormatPSNR(result.Fidelity.PSNRDb), result.Fidelity.Quality)
	if result.Fidelity.Degraded {
		log.Warnf("PSNR below %.0f dB, distortion may be audible", audio.AcceptablePSNR)
	}
	return nil
}

func runDecode(args []string, stdout io.Writer, log *logrus.Logger) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	in := fs.String("in", "", "stego audio")
	key := fs.String("key", "", "stego key")
	random := fs.Bool("random", false, "the secret was embedded with -random")
	outDir := fs.String("out", ".", "output directory")
	name := fs.String("name", "", "output filename (defaults to the embedded name)")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *in == "" {
		return fmt.Errorf("%w: -in is required", errUsage)
	}
	setVerbose(log, *verbose)

	buf, _, err := readAudio(audio.NewAudioDecoder(log), *in)
	if err != nil {
		return err
	}
	secret, err := stego.Decode(buf, *key, stego.DecodeOptions{UseRandomStart: *random})
	if err != nil {
		return err
	}

	target := filepath.Join(*outDir, outputName(*name, secret.Filename))
	if err := os.WriteFile(target, secret.Data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s (%s, %d LSB bits, encrypted=%v)\n",
		target, humanize.Bytes(uint64(len(secret.Data))), secret.LSBDepth, secret.Encrypted)
	return nil
}

// outputName picks the file an extracted secret is written to. Names that
// could leave the output directory fall back to secret.bin.
func outputName(requested, embedded string) string {
	embedded, embeddedErr := storage.CleanName(embedded)
	name, err := storage.CleanName(strings.TrimSpace(requested))
	if err != nil {
		name, err = embedded, embeddedErr
	}
	if err != nil {
		return "secret.bin"
	}
	if filepath.Ext(name) == "" && embeddedErr == nil {
		name += filepath.Ext(embedded)
	}
	return name
}

func runCapacity(args []string, stdout io.Writer, log *logrus.Logger) error {
	fs := flag.NewFlagSet("capacity", flag.ContinueOnError)
	in := fs.String("in", "", "cover audio")
	lsb := fs.Int("lsb", 2, "LSB bits per sample (1-4)")
	filename := fs.String("filename", "", "name of the file to hide")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *in == "" {
		return fmt.Errorf("%w: -in is required", errUsage)
	}
	if *lsb < 1 || *lsb > 4 {
		return stego.ErrInvalidDepth
	}

	buf, _, err := readAudio(audio.NewAudioDecoder(log), *in)
	if err != nil {
		return err
	}
	capacity := stego.CapacityFor(buf.Len(), *lsb, filepath.Base(*filename))
	if *filename == "" {
		capacity = stego.Capacity(buf.Len(), *lsb)
	}
	fmt.Fprintf(stdout, "%d bytes (%s) in %d samples at %d LSB bits\n",
		capacity, humanize.Bytes(uint64(capacity)), buf.Len(), *lsb)
	return nil
}

func readAudio(decoder *audio.AudioDecoder, path string) (*audio.SampleBuffer, *models.AudioMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return decoder.Decode(data, filepath.Base(path))
}

func setVerbose(log *logrus.Logger, verbose bool) {
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
}
