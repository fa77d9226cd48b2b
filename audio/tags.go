package audio

import (
	"bytes"
	"strings"

	"steganography-backend/models"
	"steganography-backend/mp3parser"

	"github.com/bogem/id3v2"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"
)

// ReadMP3Tags reads descriptive tags from the ID3v2 tag, falling back to ID3v1.
func (ad *AudioDecoder) ReadMP3Tags(mp3Data []byte) models.AudioTags {
	var tags models.AudioTags

	tag, err := id3v2.ParseReader(bytes.NewReader(mp3Data), id3v2.Options{Parse: true})
	if err != nil {
		ad.log.WithError(err).Warn("could not parse ID3v2 metadata")
	} else {
		tags = models.AudioTags{
			Title:  tag.Title(),
			Artist: tag.Artist(),
			Album:  tag.Album(),
			Genre:  tag.Genre(),
			Year:   tag.Year(),
		}
	}

	if tags == (models.AudioTags{}) {
		if v1 := mp3parser.ReadID3v1(mp3Data); v1 != nil {
			tags = models.AudioTags{
				Title:  v1.Title,
				Artist: v1.Artist,
				Album:  v1.Album,
				Year:   v1.Year,
			}
		}
	}
	return tags
}

// ReadWAVTags reads the LIST/INFO chunk of a WAV file.
func ReadWAVTags(wavData []byte) models.AudioTags {
	decoder := wav.NewDecoder(bytes.NewReader(wavData))
	decoder.ReadMetadata()
	if decoder.Err() != nil || decoder.Metadata == nil {
		return models.AudioTags{}
	}
	return models.AudioTags{
		Title:  strings.TrimRight(decoder.Metadata.Title, " "),
		Artist: strings.TrimRight(decoder.Metadata.Artist, " "),
		Album:  strings.TrimRight(decoder.Metadata.Product, " "),
		Genre:  strings.TrimRight(decoder.Metadata.Genre, " "),
		Year:   strings.TrimRight(decoder.Metadata.CreationDate, " "),
	}
}

func readFLACTags(stream *flac.Stream) models.AudioTags {
	var tags models.AudioTags
	for _, block := range stream.Blocks {
		comment, ok := block.Body.(*meta.VorbisComment)
		if !ok {
			continue
		}
		for _, kv := range comment.Tags {
			switch strings.ToUpper(kv[0]) {
			case "TITLE":
				tags.Title = kv[1]
			case "ARTIST":
				tags.Artist = kv[1]
			case "ALBUM":
				tags.Album = kv[1]
			case "GENRE":
				tags.Genre = kv[1]
			case "DATE":
				tags.Year = kv[1]
			}
		}
	}
	return tags
}

func wavMetadata(tags models.AudioTags) *wav.Metadata {
	if tags == (models.AudioTags{}) {
		return nil
	}
	return &wav.Metadata{
		Title:        infoValue(tags.Title),
		Artist:       infoValue(tags.Artist),
		Product:      infoValue(tags.Album),
		Genre:        infoValue(tags.Genre),
		CreationDate: infoValue(tags.Year),
		Software:     infoValue("steganography-backend"),
	}
}

// infoValue pads v to an odd length. The encoder sizes each INFO sub-chunk as
// len(v)+1 without a pad byte, while readers skip a pad after odd sizes, so
// an even-length value would misalign every sub-chunk after it.
// ReadWAVTags trims the padding.
func infoValue(v string) string {
	if v != "" && len(v)%2 == 0 {
		return v + " "
	}
	return v
}
