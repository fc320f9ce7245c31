package models

// Usina is one physical batching site. Stock and history are partitioned
// per usina; the selected usina is session state and is never persisted.
type Usina string

const (
	UsinaAngatuba      Usina = "Angatuba"
	UsinaAvare         Usina = "Avaré"
	UsinaCarlopolis    Usina = "Carlópolis"
	UsinaItaporanga    Usina = "Itaporanga"
	UsinaParanapanema  Usina = "Paranapanema"
	UsinaPiraju        Usina = "Piraju"
	UsinaTaquarituba   Usina = "Taquarituba"
	UsinaRibeiraoClaro Usina = "Ribeirão Claro"
	UsinaJacarezinho   Usina = "Jacarezinho"
)

var Usinas = []Usina{
	UsinaAngatuba,
	UsinaAvare,
	UsinaCarlopolis,
	UsinaItaporanga,
	UsinaParanapanema,
	UsinaPiraju,
	UsinaTaquarituba,
	UsinaRibeiraoClaro,
	UsinaJacarezinho,
}

const DefaultUsina = UsinaAngatuba

func ValidUsina(name string) bool {
	for _, u := range Usinas {
		if string(u) == name {
			return true
		}
	}
	return false
}
