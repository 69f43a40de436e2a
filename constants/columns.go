package constants

// Column keys of a child record, in export order. These are also the JSON
// property names the model is asked to produce.
const (
	ColNo               = "No."
	ColNama             = "Nama"
	ColNIK              = "NIK"
	ColTempatLahir      = "Tempat Lahir"
	ColTanggalLahir     = "Tanggal Lahir"
	ColNamaAyah         = "Nama Ayah"
	ColTempatLahirAyah  = "Tempat Lahir Ayah"
	ColTanggalLahirAyah = "Tanggal Lahir Ayah"
	ColPendidikanAyah   = "Pendidikan Ayah"
	ColPekerjaanAyah    = "Pekerjaan Ayah"
	ColNamaIbu          = "Nama Ibu"
	ColTempatLahirIbu   = "Tempat Lahir Ibu"
	ColTanggalLahirIbu  = "Tanggal Lahir Ibu"
	ColPendidikanIbu    = "Pendidikan Ibu"
	ColPekerjaanIbu     = "Pekerjaan Ibu"
	ColAlamatLengkap    = "Alamat Lengkap"
	ColNoKK             = "No. KK"
)

// RecordColumns is the fixed header order of the export sheet.
var RecordColumns = []string{
	ColNo,
	ColNama,
	ColNIK,
	ColTempatLahir,
	ColTanggalLahir,
	ColNamaAyah,
	ColTempatLahirAyah,
	ColTanggalLahirAyah,
	ColPendidikanAyah,
	ColPekerjaanAyah,
	ColNamaIbu,
	ColTempatLahirIbu,
	ColTanggalLahirIbu,
	ColPendidikanIbu,
	ColPekerjaanIbu,
	ColAlamatLengkap,
	ColNoKK,
}

// RequiredColumns must be present on every record the model returns.
var RequiredColumns = []string{
	ColNama,
	ColNIK,
	ColTanggalLahir,
	ColNamaAyah,
	ColNamaIbu,
	ColNoKK,
	ColAlamatLengkap,
}
