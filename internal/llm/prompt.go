package llm

import "strings"

// BuildExtractionPrompt returns the fixed instruction sent with every Family
// Card. The model answers with an empty array for anything that is not a KK.
func BuildExtractionPrompt() string {
	parts := []string{
		"Periksa dokumen ini. Jika dokumen ini BUKAN Kartu Keluarga (KK) resmi Indonesia, kembalikan array JSON kosong [].",
		"Jika YA, ekstrak data HANYA untuk anggota keluarga dengan status hubungan \"ANAK\", satu objek per anak.",
		"Isi setiap objek sesuai urutan kolom pada skema.",
		"Ambil NAMA AYAH dan NAMA IBU dari kepala keluarga dan pasangannya, lengkap dengan tempat lahir, tanggal lahir, pendidikan, dan pekerjaan masing-masing.",
		"Sertakan ALAMAT LENGKAP dan NO. KK yang tertera pada dokumen di setiap objek.",
		"Tulis semua tanggal dengan format DD-MM-YYYY.",
		"Keluarkan HANYA JSON yang sesuai dengan skema yang diberikan.",
	}
	return strings.Join(parts, "\n")
}
