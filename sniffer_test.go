package unarc

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

func buildTar(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := tar.NewWriter(&buf)
	for name, content := range files {
		require.NoError(t, w.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}))
		_, err := w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func gzipCompress(t *testing.T, data []byte, origName string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	w.Name = origName
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func xzCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func lzmaCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstdCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func lz4Compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestSniffSignatures(t *testing.T) {
	payload := []byte("sniffer payload")

	isoBuf := make([]byte, 0x8001+5)
	copy(isoBuf[0x8001:], "CD001")

	cases := []struct {
		name string
		data []byte
		want FormatTag
	}{
		{"zip", []byte{0x50, 0x4B, 0x03, 0x04, 0x00, 0x00}, FormatZIP},
		{"zip empty", []byte{0x50, 0x4B, 0x05, 0x06}, FormatZIP},
		{"7z", []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C, 0x00, 0x04}, Format7Z},
		{"rar v4", []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00}, FormatRAR},
		{"rar v5", []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00}, FormatRAR},
		{"gzip", gzipCompress(t, payload, ""), FormatGZIP},
		{"bzip2", []byte("BZh91AY&SY"), FormatBZIP2},
		{"xz", xzCompress(t, payload), FormatXZ},
		{"lzma", lzmaCompress(t, payload), FormatLZMA},
		{"zstd", zstdCompress(t, payload), FormatZSTD},
		{"lz4", lz4Compress(t, payload), FormatLZ4},
		{"cab", []byte("MSCF\x00\x00\x00\x00"), FormatCAB},
		{"ar", []byte("!<arch>\n"), FormatAR},
		{"cpio newc", []byte("070701000000"), FormatCPIO},
		{"cpio odc", []byte("070707000000"), FormatCPIO},
		{"tar", buildTar(t, map[string]string{"a.txt": "hello"}), FormatTAR},
		{"iso", isoBuf, FormatISO},
		{"unknown", bytes.Repeat([]byte{0xFF}, 512), FormatUnknown},
		{"empty", nil, FormatUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Sniff(tc.data))
		})
	}
}

// ZIP签名只看内容，不看扩展名提示
func TestSniffIgnoresFileName(t *testing.T) {
	data := buildZip(t, map[string]string{"doc.txt": "content"})
	require.Equal(t, FormatZIP, Sniff(data))

	result, err := Extract(data, &Options{FileName: "definitely-not-a-zip.rar"})
	require.NoError(t, err)
	require.Equal(t, FormatZIP, result.Format.Tag)
}

// 短缓冲区必须跳过越界检查而不是panic，且永远不可能是TAR
func TestSniffShortBuffers(t *testing.T) {
	tarData := buildTar(t, map[string]string{"a.txt": "x"})

	for n := 0; n < 262; n++ {
		got := Sniff(tarData[:n])
		require.NotEqual(t, FormatTAR, got, "length %d", n)
	}
	require.Equal(t, FormatTAR, Sniff(tarData[:262]))
}

func TestSniffLZMAPlausibility(t *testing.T) {
	// 属性字节正确但字典大小不是2的幂，不应识别为LZMA
	bogus := make([]byte, 13)
	bogus[0] = 0x5D
	bogus[3] = 0x55
	require.Equal(t, FormatUnknown, Sniff(bogus))

	// 字典大小低位字节参与计算：非零低位破坏2的幂属性
	lowByte := make([]byte, 13)
	lowByte[0] = 0x5D
	lowByte[2] = 0x01 // dictSize = 0x10100
	lowByte[3] = 0x01
	require.Equal(t, FormatUnknown, Sniff(lowByte))

	// 合法的64KiB字典
	valid := make([]byte, 13)
	valid[0] = 0x5D
	valid[3] = 0x01 // dictSize = 0x10000
	require.Equal(t, FormatLZMA, Sniff(valid))

	// 头部不足13字节时直接放弃
	require.Equal(t, FormatUnknown, Sniff([]byte{0x5D, 0x00, 0x00}))
}

func TestDetectFormatWrappedTar(t *testing.T) {
	tarData := buildTar(t, map[string]string{"inner.txt": "tarball member"})

	cases := []struct {
		name string
		data []byte
		tag  FormatTag
	}{
		{"tar.gz", gzipCompress(t, tarData, ""), FormatGZIP},
		{"tar.xz", xzCompress(t, tarData), FormatXZ},
		{"tar.zst", zstdCompress(t, tarData), FormatZSTD},
		{"tar.lz4", lz4Compress(t, tarData), FormatLZ4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			format := DetectFormat(tc.data)
			require.Equal(t, tc.tag, format.Tag)
			require.True(t, format.WrapsTar)
		})
	}

	// 单个压缩文件不是tarball
	plain := DetectFormat(gzipCompress(t, []byte("just text"), ""))
	require.Equal(t, FormatGZIP, plain.Tag)
	require.False(t, plain.WrapsTar)
}
