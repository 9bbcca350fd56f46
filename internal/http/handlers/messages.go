package handlers

// errorMessages holds the non-English user-facing strings, keyed by locale
// then error code. Codes without an entry fall back to the English text
// passed at the call site.
var errorMessages = map[string]map[string]string{
	"es": {
		"invalid_credentials":  "el correo o la contraseña no son correctos",
		"already_registered":   "este correo ya está registrado, inicia sesión",
		"no_profile":           "no existe un perfil para esta cuenta",
		"session_expired":      "no hay sesión activa, inicia sesión de nuevo",
		"unauthorized":         "se requiere iniciar sesión",
		"insufficient_credits": "no quedan créditos, compra un paquete para continuar",
		"invalid_selection":    "selección de prendas no válida",
		"tryon_pending":        "ya hay una prueba en curso",
		"timeout":              "la operación tardó demasiado",
		"generation_failed":    "el motor de estilo no pudo generar el look",
	},
	"id": {
		"invalid_credentials":  "email atau kata sandi salah",
		"already_registered":   "email ini sudah terdaftar, silakan masuk",
		"no_profile":           "tidak ada profil untuk akun ini",
		"session_expired":      "tidak ada sesi aktif, silakan masuk lagi",
		"unauthorized":         "harus masuk terlebih dahulu",
		"insufficient_credits": "kredit habis, beli paket untuk melanjutkan",
		"invalid_selection":    "pilihan busana tidak valid",
		"tryon_pending":        "proses coba busana masih berjalan",
		"timeout":              "operasi terlalu lama",
		"generation_failed":    "mesin gaya gagal membuat tampilan",
	},
}

func localizeError(locale, code string) string {
	if msgs, ok := errorMessages[locale]; ok {
		return msgs[code]
	}
	return ""
}
