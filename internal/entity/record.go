package entity

// ChildRecord is one child entry extracted from a Family Card, together with
// the parents' details and the household address. All values are kept as the
// strings the model returned; dates use DD-MM-YYYY.
type ChildRecord struct {
	No               string `json:"No."`
	Nama             string `json:"Nama"`
	NIK              string `json:"NIK"`
	TempatLahir      string `json:"Tempat Lahir"`
	TanggalLahir     string `json:"Tanggal Lahir"`
	NamaAyah         string `json:"Nama Ayah"`
	TempatLahirAyah  string `json:"Tempat Lahir Ayah"`
	TanggalLahirAyah string `json:"Tanggal Lahir Ayah"`
	PendidikanAyah   string `json:"Pendidikan Ayah"`
	PekerjaanAyah    string `json:"Pekerjaan Ayah"`
	NamaIbu          string `json:"Nama Ibu"`
	TempatLahirIbu   string `json:"Tempat Lahir Ibu"`
	TanggalLahirIbu  string `json:"Tanggal Lahir Ibu"`
	PendidikanIbu    string `json:"Pendidikan Ibu"`
	PekerjaanIbu     string `json:"Pekerjaan Ibu"`
	AlamatLengkap    string `json:"Alamat Lengkap"`
	NoKK             string `json:"No. KK"`
}

// Values returns the record's fields in export column order.
func (r ChildRecord) Values() []string {
	return []string{
		r.No,
		r.Nama,
		r.NIK,
		r.TempatLahir,
		r.TanggalLahir,
		r.NamaAyah,
		r.TempatLahirAyah,
		r.TanggalLahirAyah,
		r.PendidikanAyah,
		r.PekerjaanAyah,
		r.NamaIbu,
		r.TempatLahirIbu,
		r.TanggalLahirIbu,
		r.PendidikanIbu,
		r.PekerjaanIbu,
		r.AlamatLengkap,
		r.NoKK,
	}
}
