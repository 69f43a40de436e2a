package llm

import "github.com/joseph-ayodele/kk-extractor/constants"

// recordDescriptions documents each record field for the model.
var recordDescriptions = map[string]string{
	constants.ColNo:               "Nomor urut anggota keluarga pada KK.",
	constants.ColNama:             "Nama lengkap anak.",
	constants.ColNIK:              "Nomor Induk Kependudukan anak.",
	constants.ColTempatLahir:      "Tempat lahir anak.",
	constants.ColTanggalLahir:     "Tanggal lahir anak, format DD-MM-YYYY.",
	constants.ColNamaAyah:         "Nama lengkap ayah.",
	constants.ColTempatLahirAyah:  "Tempat lahir ayah.",
	constants.ColTanggalLahirAyah: "Tanggal lahir ayah, format DD-MM-YYYY.",
	constants.ColPendidikanAyah:   "Pendidikan terakhir ayah.",
	constants.ColPekerjaanAyah:    "Jenis pekerjaan ayah.",
	constants.ColNamaIbu:          "Nama lengkap ibu.",
	constants.ColTempatLahirIbu:   "Tempat lahir ibu.",
	constants.ColTanggalLahirIbu:  "Tanggal lahir ibu, format DD-MM-YYYY.",
	constants.ColPendidikanIbu:    "Pendidikan terakhir ibu.",
	constants.ColPekerjaanIbu:     "Jenis pekerjaan ibu.",
	constants.ColAlamatLengkap:    "Alamat lengkap keluarga dengan format: KP. ... RT .../RW ... DESA .... KEC. ... KAB. ... {KODE POS}",
	constants.ColNoKK:             "Nomor Kartu Keluarga.",
}

// BuildRecordJSONSchema returns the response schema as a generic map: an array
// of objects with the 17 string fields, 7 of them required. propertyOrdering is
// a model hint and is ignored by JSON Schema validators.
// We pass this to the model as the structured output constraint and also use it locally to validate.
func BuildRecordJSONSchema() map[string]any {
	props := make(map[string]any, len(constants.RecordColumns))
	for _, col := range constants.RecordColumns {
		props[col] = map[string]any{
			"type":        "string",
			"description": recordDescriptions[col],
		}
	}

	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":             "object",
			"properties":       props,
			"required":         append([]string(nil), constants.RequiredColumns...),
			"propertyOrdering": append([]string(nil), constants.RecordColumns...),
		},
	}
}
