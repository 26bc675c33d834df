package sdsp

import (
    "github.com/kazzmir/chipsound/lib/pcm"
)

/* Interleaved gaussian interpolation table, Gauss[i*2+j] = normal[(1-j)*256+i]
 * where normal[i] is close to
 *   exp((i-511)^2 * -9.975e-6) * sin(0.00307096*i)^1.7358 * 1304.45
 */
var Gauss = [512]int{
     370, 1305,  366, 1305,  362, 1304,  358, 1304,  354, 1304,  351, 1304,  347, 1304,  343, 1303,
     339, 1303,  336, 1303,  332, 1302,  328, 1302,  325, 1301,  321, 1300,  318, 1300,  314, 1299,
     311, 1298,  307, 1297,  304, 1297,  300, 1296,  297, 1295,  293, 1294,  290, 1293,  286, 1292,
     283, 1291,  280, 1290,  276, 1288,  273, 1287,  270, 1286,  267, 1284,  263, 1283,  260, 1282,
     257, 1280,  254, 1279,  251, 1277,  248, 1275,  245, 1274,  242, 1272,  239, 1270,  236, 1269,
     233, 1267,  230, 1265,  227, 1263,  224, 1261,  221, 1259,  218, 1257,  215, 1255,  212, 1253,
     210, 1251,  207, 1248,  204, 1246,  201, 1244,  199, 1241,  196, 1239,  193, 1237,  191, 1234,
     188, 1232,  186, 1229,  183, 1227,  180, 1224,  178, 1221,  175, 1219,  173, 1216,  171, 1213,
     168, 1210,  166, 1207,  163, 1205,  161, 1202,  159, 1199,  156, 1196,  154, 1193,  152, 1190,
     150, 1186,  147, 1183,  145, 1180,  143, 1177,  141, 1174,  139, 1170,  137, 1167,  134, 1164,
     132, 1160,  130, 1157,  128, 1153,  126, 1150,  124, 1146,  122, 1143,  120, 1139,  118, 1136,
     117, 1132,  115, 1128,  113, 1125,  111, 1121,  109, 1117,  107, 1113,  106, 1109,  104, 1106,
     102, 1102,  100, 1098,   99, 1094,   97, 1090,   95, 1086,   94, 1082,   92, 1078,   90, 1074,
      89, 1070,   87, 1066,   86, 1061,   84, 1057,   83, 1053,   81, 1049,   80, 1045,   78, 1040,
      77, 1036,   76, 1032,   74, 1027,   73, 1023,   71, 1019,   70, 1014,   69, 1010,   67, 1005,
      66, 1001,   65,  997,   64,  992,   62,  988,   61,  983,   60,  978,   59,  974,   58,  969,
      56,  965,   55,  960,   54,  955,   53,  951,   52,  946,   51,  941,   50,  937,   49,  932,
      48,  927,   47,  923,   46,  918,   45,  913,   44,  908,   43,  904,   42,  899,   41,  894,
      40,  889,   39,  884,   38,  880,   37,  875,   36,  870,   36,  865,   35,  860,   34,  855,
      33,  851,   32,  846,   32,  841,   31,  836,   30,  831,   29,  826,   29,  821,   28,  816,
      27,  811,   27,  806,   26,  802,   25,  797,   24,  792,   24,  787,   23,  782,   23,  777,
      22,  772,   21,  767,   21,  762,   20,  757,   20,  752,   19,  747,   19,  742,   18,  737,
      17,  732,   17,  728,   16,  723,   16,  718,   15,  713,   15,  708,   15,  703,   14,  698,
      14,  693,   13,  688,   13,  683,   12,  678,   12,  674,   11,  669,   11,  664,   11,  659,
      10,  654,   10,  649,   10,  644,    9,  640,    9,  635,    9,  630,    8,  625,    8,  620,
       8,  615,    7,  611,    7,  606,    7,  601,    6,  596,    6,  592,    6,  587,    6,  582,
       5,  577,    5,  573,    5,  568,    5,  563,    4,  559,    4,  554,    4,  550,    4,  545,
       4,  540,    3,  536,    3,  531,    3,  527,    3,  522,    3,  517,    2,  513,    2,  508,
       2,  504,    2,  499,    2,  495,    2,  491,    2,  486,    1,  482,    1,  477,    1,  473,
       1,  469,    1,  464,    1,  460,    1,  456,    1,  451,    1,  447,    1,  443,    1,  439,
       0,  434,    0,  430,    0,  426,    0,  422,    0,  418,    0,  414,    0,  410,    0,  405,
       0,  401,    0,  397,    0,  393,    0,  389,    0,  385,    0,  381,    0,  378,    0,  374,
}

/* Interpolate between the 4 most recent samples. history[0] is the newest.
 * Only the low 12 bits of fraction select the position.
 */
func Interpolate(fraction int, history *[4]int16) int {
    /* byte offsets into the table in the hardware, halve them for entries */
    index := (fraction >> 2 & 0x3FC) >> 1
    reverse := (255 * 4 - (fraction >> 2 & 0x3FC)) >> 1

    sample := ((Gauss[index] * int(history[3])) >> 12) +
              ((Gauss[index + 1] * int(history[2])) >> 12) +
              ((Gauss[reverse + 1] * int(history[1])) >> 12)
    sample = int(int16(2 * sample))
    sample += (Gauss[reverse] * int(history[0])) >> 11 & ^1
    return pcm.Clamp16(sample)
}

/* Runs the brr reconstruction filter and the gaussian interpolator over a
 * stream of samples, one input per Run.
 */
type GaussianFilter struct {
    history [4]int16
    fraction int
    rate int
    filter int
}

func MakeGaussianFilter() *GaussianFilter {
    filter := &GaussianFilter{}
    filter.Reset()
    return filter
}

func (filter *GaussianFilter) Reset() {
    filter.history = [4]int16{}
    filter.fraction = 0x3FFF
    filter.rate = 0x1000
    filter.filter = 2
}

/* 14-bit rate, 0x1000 is one input per output */
func (filter *GaussianFilter) SetRate(rate int) {
    filter.rate = rate & 0x3FFF
}

/* filter mode 0-3 as in a brr header */
func (filter *GaussianFilter) SetFilter(mode int) {
    filter.filter = mode & 3
}

func (filter *GaussianFilter) Run(input int16) int16 {
    delta := reconstruct(filter.filter, int(input), int(filter.history[0]), int(filter.history[1]))
    pushHistory(&filter.history, int16(2 * pcm.Clamp16(delta)))

    fraction := filter.fraction
    filter.fraction = (fraction & 0x0FFF) + filter.rate
    return int16(Interpolate(fraction, &filter.history))
}
