package pricing

// Band is an absolute per-unit price range.
type Band struct {
	Min uint64 `json:"min" yaml:"min"`
	Max uint64 `json:"max" yaml:"max"`
}

// OverrideTable maps item ids to hand-tuned price bands that bypass the
// multiplier formula.
type OverrideTable map[uint32]Band

// Lookup returns the band for id, if any.
func (t OverrideTable) Lookup(id uint32) (Band, bool) {
	if t == nil {
		return Band{}, false
	}
	b, ok := t[id]
	return b, ok
}

// Add assigns band to every id. Earlier entries win, so callers add the
// most specific groups first.
func (t OverrideTable) Add(band Band, ids ...uint32) {
	for _, id := range ids {
		if _, ok := t[id]; !ok {
			t[id] = band
		}
	}
}

// Merge copies entries from other, replacing existing ones.
func (t OverrideTable) Merge(other OverrideTable) {
	for id, b := range other {
		t[id] = b
	}
}

var (
	gemIDs = []uint32{
		36766, 36767, 36919, 36922, 36925, 36928, 36931, 36934,
		40111, 40112, 40113, 40114, 40115, 40116, 40117, 40118, 40119, 40120,
		40121, 40122, 40123, 40124, 40125, 40126, 40127, 40128, 40129, 40130,
		40131, 40132, 40133, 40134, 40135, 40136, 40137, 40138, 40139, 40140,
		40141, 40142, 40143, 40144, 40145, 40146, 40147, 40148, 40149, 40150,
		40151, 40152, 40153, 40154, 40155, 40156, 40157, 40158, 40159, 40160,
		40161, 40162, 40163, 40164, 40165, 40166, 40167, 40168, 40169, 40170,
		40171, 40172, 40173, 40174, 40175, 40176, 40177, 40178, 40179, 40180,
		40181, 40182, 42142, 42143, 42144, 42145, 42146, 42148, 42149, 42150,
		42151, 42152, 42153, 42154, 42155, 42156, 42157, 42158, 44066, 45862,
		45879, 45880, 45881, 45882, 45883, 45987, 49110,
	}
	craftedT245IDs = []uint32{
		42987, 47589, 47590, 47591, 47592, 47593, 47594, 47595, 47596, 47597,
		47598, 47599, 47600, 47601, 47602, 47603, 47604, 47605, 47606, 50001,
		50038,
	}
	ilvl200to245IDs = []uint32{
		37835, 39194, 39235, 39283, 39310, 39472, 39717, 39733, 39762, 40187,
		40206, 40246, 40270, 40282, 40302, 40305, 40338, 40347, 40362, 40426,
		40439, 40474, 40553, 40558, 40733, 40734, 40735, 40736, 40737, 40738,
		40739, 40740, 40741, 41168, 41257, 41383, 41384, 41386, 41387, 41388,
		41391, 41392, 41394, 41609, 41610, 42100, 42101, 42102, 42103, 42111,
		42113, 42435, 42508, 42642, 42643, 42644, 42645, 42646, 42647, 42989,
		42990, 43458, 43459, 43461, 43469, 43481, 43484, 43495, 43502, 43565,
		43566, 43573, 43582, 43583, 43584, 43585, 43586, 43587, 43588, 43590,
		43591, 43592, 43593, 43594, 43595, 43611, 43612, 43613, 44308, 44309,
		44310, 44311, 44312, 44313, 44504, 44926, 44930, 44931, 44948, 45085,
		45107, 45141, 45167, 45237, 45247, 45274, 45291, 45301, 45316, 45322,
		45435, 45450, 45468, 45480, 45493, 45504, 45550, 45551, 45552, 45553,
		45554, 45555, 45556, 45557, 45558, 45559, 45560, 45561, 45562, 45563,
		45564, 45565, 45566, 45567, 45680, 45704, 45709, 45859, 45874, 45927,
		45975, 46009, 48663, 52252,
	}
	otherBoEIDs = []uint32{
		37835, 42988, 44253, 44254, 44255, 33350, 43573, 46970, 47089, 47105,
		47149, 47223, 47257, 47278, 47291, 47297, 47315, 47570, 47571, 47572,
		47573, 47574, 47575, 47576, 47577, 47579, 47580, 47581, 47582, 47583,
		47584, 47585, 47586, 47587, 47588, 49890, 49891, 49892, 49893, 49894,
		49895, 49896, 49897, 49898, 49899, 49900, 49901, 49902, 49903, 49904,
		49905, 49906, 49907, 49967, 49994, 50015, 50020, 50069, 50175, 50182,
		50444, 50447, 50449, 50450, 50451, 50452, 50453, 50472,
	}
)

// DefaultOverrides returns the stock table for known high-value items.
func DefaultOverrides() OverrideTable {
	t := OverrideTable{}
	t.Add(Band{Min: 1000000, Max: 2000000}, gemIDs...)
	t.Add(Band{Min: 28000000, Max: 37000000}, craftedT245IDs...)
	t.Add(Band{Min: 8000000, Max: 12000000}, ilvl200to245IDs...)
	t.Add(Band{Min: 12500000, Max: 25000000}, otherBoEIDs...)
	return t
}
